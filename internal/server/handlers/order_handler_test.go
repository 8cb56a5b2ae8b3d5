package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mobilepoint/apexorder/internal/service/pipeline"
	"github.com/mobilepoint/apexorder/internal/tabular"
)

const (
	catalogCSV = "Cod;Denumire;Disponibilitate;Pret\n" +
		"GH82-26485A/26486A;Ecran;5;10,00\n"
	movementCSV = "SmartBill\n\n\n\n\n\n\n\n\n" +
		"Cod;Denumire;Iesiri;Stoc final\n" +
		"GH82-26485A;Ecran;8;1\n" +
		"GH82-26486A;Ecran;0;0\n"
)

type upload struct {
	field, filename, content string
}

func newTestEngine(t *testing.T, opts pipeline.Options) *gin.Engine {
	t.Helper()
	return newLimitedEngine(t, opts, 1<<20)
}

func newLimitedEngine(t *testing.T, opts pipeline.Options, maxUpload int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	driver, err := pipeline.NewDriver(opts, nil, nil)
	require.NoError(t, err)

	h := NewOrderHandler(driver, tabular.Options{}, maxUpload, nil)
	r := gin.New()
	r.POST("/api/orders", h.Create)
	return r
}

func doUpload(t *testing.T, r http.Handler, query string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	req := uploadRequest(t, query, files...)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, query string, files ...upload) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/orders"+query, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validUploads() []upload {
	return []upload{
		{"catalog", "apex.csv", catalogCSV},
		{"movement", "smartbill.csv", movementCSV},
	}
}

func TestCreateJSON(t *testing.T) {
	r := newTestEngine(t, pipeline.DefaultOptions())

	rec := doUpload(t, r, "", validUploads()...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "GH82-26485A", res.Rows[0].Code)
	assert.Equal(t, 10, res.Rows[0].OrderQty)
	assert.Equal(t, 0, res.Rows[1].OrderQty)
	assert.Equal(t, res.RunID, rec.Header().Get("X-Run-ID"))
	assert.Equal(t, 1, res.Summary.OrderLines)
}

func TestCreateCSV(t *testing.T) {
	r := newTestEngine(t, pipeline.DefaultOptions())

	rec := doUpload(t, r, "?format=csv&diagnostics=true", validUploads()...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, `attachment; filename="apex_comanda.csv"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(rec.Body.String(), "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "code,name,availability,unitPrice,orderQty,outboundQty,finalStock", lines[0])
	assert.Equal(t, "GH82-26485A,Ecran,5,10.00,10,8,1", lines[1])
}

func TestCreateXLSX(t *testing.T) {
	r := newTestEngine(t, pipeline.DefaultOptions())

	rec := doUpload(t, r, "?format=xlsx", validUploads()...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="apex_comanda.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Comanda")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestCreateSchemaError(t *testing.T) {
	r := newTestEngine(t, pipeline.DefaultOptions())

	rec := doUpload(t, r, "",
		upload{"catalog", "apex.csv", "Cod;Denumire\nA;x\n"},
		upload{"movement", "smartbill.csv", movementCSV},
	)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Source  string   `json:"source"`
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "catalog", body.Source)
	assert.Equal(t, []string{"availability", "price"}, body.Missing)
}

func TestCreateStrictEmptyInput(t *testing.T) {
	opts := pipeline.DefaultOptions()
	opts.StrictEmpty = true
	r := newTestEngine(t, opts)

	rec := doUpload(t, r, "",
		upload{"catalog", "apex.csv", "Cod;Denumire;Disponibilitate;Pret\n"},
		upload{"movement", "smartbill.csv", movementCSV},
	)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data rows")
}

func TestCreateBadRequests(t *testing.T) {
	r := newTestEngine(t, pipeline.DefaultOptions())

	cases := map[string]struct {
		query string
		files []upload
	}{
		"missing movement": {files: validUploads()[:1]},
		"legacy xls":       {files: []upload{{"catalog", "apex.xls", "x"}, {"movement", "smartbill.csv", movementCSV}}},
		"unknown format":   {query: "?format=pdf", files: validUploads()},
		"bad diagnostics":  {query: "?diagnostics=maybe", files: validUploads()},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doUpload(t, r, tc.query, tc.files...)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateRejectsOversizedUpload(t *testing.T) {
	r := newLimitedEngine(t, pipeline.DefaultOptions(), 512)
	big := upload{"movement", "smartbill.csv", movementCSV + strings.Repeat("GH82-1A;Ecran;1;0\n", 200)}

	rec := doUpload(t, r, "", upload{"catalog", "apex.csv", catalogCSV}, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload too large")
}

func TestCreateRejectsOversizedStreamedUpload(t *testing.T) {
	r := newLimitedEngine(t, pipeline.DefaultOptions(), 512)
	big := upload{"movement", "smartbill.csv", movementCSV + strings.Repeat("GH82-1A;Ecran;1;0\n", 200)}

	req := uploadRequest(t, "", upload{"catalog", "apex.csv", catalogCSV}, big)
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreateRequiresMultipart(t *testing.T) {
	r := newTestEngine(t, pipeline.DefaultOptions())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"catalog":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

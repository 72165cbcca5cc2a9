package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/amrlink/internal/queue"
	mid "github.com/OFFIS-RIT/amrlink/internal/server/middleware"
	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/graph"
	"github.com/OFFIS-RIT/amrlink/pkg/store"
	"github.com/OFFIS-RIT/amrlink/pkg/store/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	masterKey = "master-secret"
	jwtSecret = "jwt-secret"

	documentJSON = `{"title":"= Test =","sentences":[` +
		`{"text":"a","amr":"(x / person)","amr_metadata":"# ::id a1.sent1\n(x / person)"},` +
		`{"text":"b","amr":"(y / person)","amr_metadata":"# ::id a1.sent2\n(y / person)"}]}`
)

type fakeObjects struct {
	documents map[string][]byte
}

func (o *fakeObjects) PutDocument(_ context.Context, key string, body []byte) (string, error) {
	o.documents[key] = body
	return "documents/" + key + "/document.json", nil
}

func (o *fakeObjects) DownloadLink(_ context.Context, path string) (string, error) {
	return "https://files.example.org/" + path, nil
}

type fakeChannel struct {
	published map[string][][]byte
}

func (c *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp091.Table) (amqp091.Queue, error) {
	return amqp091.Queue{Name: name}, nil
}

func (c *fakeChannel) Publish(_, key string, _, _ bool, msg amqp091.Publishing) error {
	c.published[key] = append(c.published[key], msg.Body)
	return nil
}

type processorFunc func(ctx context.Context, doc common.Document) (*common.DocumentResult, *graph.DocumentGraph, error)

func (f processorFunc) ProcessDocument(ctx context.Context, doc common.Document) (*common.DocumentResult, *graph.DocumentGraph, error) {
	return f(ctx, doc)
}

type testServer struct {
	e       *echo.Echo
	app     *mid.App
	storage *memory.GraphStorage
	objects *fakeObjects
	queue   *fakeChannel
}

func personGraph(t *testing.T) *graph.DocumentGraph {
	t.Helper()
	dg := graph.NewDocumentGraph()
	require.NoError(t, dg.AddSerialized("<http://amr.isi.edu/amr_data/a1.sent1#x>", "<http://www.w3.org/1999/02/22-rdf-syntax-ns#type>", "<http://amr.isi.edu/rdf/amr-terms#person>", 0))
	return dg
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		storage: memory.NewGraphStorage(),
		objects: &fakeObjects{documents: map[string][]byte{}},
		queue:   &fakeChannel{published: map[string][][]byte{}},
	}
	ts.app = &mid.App{
		Storage:      ts.storage,
		Objects:      ts.objects,
		Queue:        ts.queue,
		ExportFormat: common.FormatTurtle,
		Processor: processorFunc(func(_ context.Context, doc common.Document) (*common.DocumentResult, *graph.DocumentGraph, error) {
			return &common.DocumentResult{DocumentID: "a1", Namespace: "a1", Sentences: len(doc.Sentences), TriplesCount: 1, Linked: true}, personGraph(t), nil
		}),
		Keyfunc: func(*jwt.Token) (any, error) {
			return []byte(jwtSecret), nil
		},
		MasterAPIKey:   masterKey,
		MasterUserID:   1,
		MasterUserRole: "admin",
	}
	ts.e = New(ts.app)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return token
}

func (ts *testServer) createDocument(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/documents", masterKey, documentJSON)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var res struct {
		Key           string `json:"key"`
		CorrelationID string `json:"correlation_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Key
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/documents", "", documentJSON).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/documents", "wrong", documentJSON).Code)

	reader := signedToken(t, jwt.MapClaims{"id": "7", "permissions": []string{"document.view"}})
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/api/documents", reader, documentJSON).Code)

	writer := signedToken(t, jwt.MapClaims{"id": 8, "permissions": []string{"document.create"}})
	assert.Equal(t, http.StatusAccepted, ts.do(t, http.MethodPost, "/api/documents", writer, documentJSON).Code)

	admin := signedToken(t, jwt.MapClaims{"id": "9", "role": "admin"})
	assert.Equal(t, http.StatusAccepted, ts.do(t, http.MethodPost, "/api/documents", admin, documentJSON).Code)

	noID := signedToken(t, jwt.MapClaims{"role": "admin"})
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/documents", noID, documentJSON).Code)
}

func TestCreateDocument(t *testing.T) {
	ts := newTestServer(t)
	key := ts.createDocument(t)

	assert.True(t, util.IsDocumentKey(key))
	assert.Contains(t, ts.objects.documents, key)

	doc, err := ts.storage.GetDocument(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, doc.Status)
	assert.Equal(t, "= Test =", doc.Title)

	require.Len(t, ts.queue.published[queue.LinkQueue], 1)
	msg, err := queue.DecodeLinkMessage(ts.queue.published[queue.LinkQueue][0])
	require.NoError(t, err)
	assert.Equal(t, key, msg.DocumentKey)
	assert.NotEmpty(t, msg.CorrelationID)
}

func TestCreateDocumentRejectsInvalidBody(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/documents", masterKey, `{"title":"t","sentences":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/documents", masterKey, `{"title":"t","sentences":[{"amr_metadata":"  "}]}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/documents", masterKey, `not json`).Code)
	assert.Empty(t, ts.queue.published)
}

func TestGetDocument(t *testing.T) {
	ts := newTestServer(t)
	key := ts.createDocument(t)

	rec := ts.do(t, http.MethodGet, "/api/documents/"+key, masterKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc store.StoredDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, key, doc.Key)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/documents/AAAAAAAAAAAAAAAAAAAAA", masterKey, "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/documents/nope", masterKey, "").Code)
}

func TestGetDocumentGraph(t *testing.T) {
	ts := newTestServer(t)
	key := ts.createDocument(t)

	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodGet, "/api/documents/"+key+"/graph", masterKey, "").Code)

	result := &common.DocumentResult{DocumentID: "a1", Namespace: "a1", Sentences: 2, TriplesCount: 1, Linked: true}
	require.NoError(t, ts.storage.SaveDocument(context.Background(), key, result, personGraph(t), nil))

	rec := ts.do(t, http.MethodGet, "/api/documents/"+key+"/graph", masterKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/turtle", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "amr-terms#person")

	rec = ts.do(t, http.MethodGet, "/api/documents/"+key+"/graph?format=nt", masterKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/n-triples", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "<http://amr.isi.edu/amr_data/a1.sent1#x>")

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/documents/"+key+"/graph?format=rdfxml", masterKey, "").Code)

	rec = ts.do(t, http.MethodGet, "/api/documents/"+key+"/graph/link", masterKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "documents/"+key+"/graph.ttl")
}

func TestProcessDocument(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/documents/process", masterKey, `{"document":`+documentJSON+`,"format":"nt"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Result common.DocumentResult `json:"result"`
		Format common.Format         `json:"format"`
		Graph  string                `json:"graph"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "a1", res.Result.DocumentID)
	assert.True(t, res.Result.Linked)
	assert.Equal(t, common.FormatNTriples, res.Format)
	assert.Contains(t, res.Graph, "<http://amr.isi.edu/amr_data/a1.sent1#x>")

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/documents/process", masterKey, `{"document":`+documentJSON+`,"format":"xml"}`).Code)
}

func TestProcessDocumentFailures(t *testing.T) {
	ts := newTestServer(t)
	ts.app.Processor = processorFunc(func(context.Context, common.Document) (*common.DocumentResult, *graph.DocumentGraph, error) {
		return &common.DocumentResult{DocumentID: "TestArticle"}, nil, common.ErrInsufficientFragments
	})

	rec := ts.do(t, http.MethodPost, "/api/documents/process", masterKey, `{"document":`+documentJSON+`}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient fragments")

	ts.app.Processor = nil
	rec = ts.do(t, http.MethodPost, "/api/documents/process", masterKey, `{"document":`+documentJSON+`}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDeleteDocument(t *testing.T) {
	ts := newTestServer(t)
	key := ts.createDocument(t)

	rec := ts.do(t, http.MethodDelete, "/api/documents/"+key, masterKey, "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, ts.queue.published[queue.DeleteQueue], 1)
	msg, err := queue.DecodeDeleteMessage(ts.queue.published[queue.DeleteQueue][0])
	require.NoError(t, err)
	assert.Equal(t, key, msg.DocumentKey)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/documents/AAAAAAAAAAAAAAAAAAAAA", masterKey, "").Code)
}

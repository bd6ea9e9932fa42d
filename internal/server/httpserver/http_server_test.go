package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/coordinator"
	"git.home.luguber.info/inful/docsync/internal/document"
	"git.home.luguber.info/inful/docsync/internal/events"
	derrors "git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/markdown"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/patch"
	"git.home.luguber.info/inful/docsync/internal/protocol"
	"git.home.luguber.info/inful/docsync/internal/section"
	smw "git.home.luguber.info/inful/docsync/internal/server/middleware"
	"git.home.luguber.info/inful/docsync/internal/server/responses"
	"git.home.luguber.info/inful/docsync/internal/transport"
)

const report = "# Report\n\n## Intro\n\nA\n\n## Details\n\nB C\n"

type fixture struct {
	srv   *httptest.Server
	coord *coordinator.Coordinator
	ch    *transport.Memory
	bus   *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := document.NewStore(report)
	builder := section.NewBuilder(markdown.NewRenderer(markdown.Options{GFM: true}), section.NewSequence("n"))
	bus := events.NewBus()
	t.Cleanup(bus.Close)
	reg := prometheus.NewRegistry()
	ch := transport.NewMemory()

	coord, err := coordinator.New(coordinator.Config{SessionID: "s1", RegenerationTimeout: time.Minute}, coordinator.Deps{
		Store:   store,
		Builder: builder,
		Applier: patch.NewApplier(store, builder, patch.DefaultLimits()),
		Channel: ch,
		Bus:     bus,
		Metrics: metrics.NewPrometheusRecorder(reg),
	})
	require.NoError(t, err)

	s := New("127.0.0.1:0", coord, bus, Options{Registry: reg})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, coord: coord, ch: ch, bus: bus}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestDocumentAndSections(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/document", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(smw.HeaderRequestID))
	var doc document.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Equal(t, report, doc.Text)

	resp, body = f.do(t, http.MethodGet, "/api/sections", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var secs responses.SectionsResponse
	require.NoError(t, json.Unmarshal(body, &secs))
	titles := make([]string, 0, len(secs.Sections))
	for _, s := range secs.Sections {
		titles = append(titles, s.Heading.Title)
	}
	require.Equal(t, []string{"Report", "Intro", "Details"}, titles)

	resp, body = f.do(t, http.MethodGet, "/api/tree?pretty=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), "\n  \"nodes\""))
}

func TestRegenerate_AcceptsThenRefusesBusy(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/sections/regenerate",
		responses.RegenerateRequest{SectionTitle: "intro", Feedback: "shorter"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var accepted responses.RegenerateResponse
	require.NoError(t, json.Unmarshal(body, &accepted))
	require.NotEmpty(t, accepted.RequestID)

	resp, body = f.do(t, http.MethodPost, "/api/sections/regenerate",
		responses.RegenerateRequest{SectionTitle: "details"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp derrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	require.Equal(t, string(derrors.CategoryBusy), errResp.Code)

	require.Len(t, f.ch.Sent(), 1)
	require.Equal(t, accepted.RequestID, f.ch.Sent()[0].(protocol.RegenerateSection).RequestID)

	resp, _ = f.do(t, http.MethodPost, "/api/sections/exit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, f.coord.State().Pending)
}

func TestRegenerate_Errors(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/sections/regenerate", responses.RegenerateRequest{SectionTitle: "Nowhere"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/sections/regenerate", map[string]string{"bogus": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/sections/regenerate", responses.RegenerateRequest{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/sections/regenerate", nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Empty(t, f.ch.Sent())
}

func TestEditFlow(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/edit/begin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/api/edit/save",
		responses.EditSaveRequest{HTML: "<h2>Intro</h2><p>Edited <strong>text</strong></p>"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rev responses.RevisionResponse
	require.NoError(t, json.Unmarshal(body, &rev))
	require.Equal(t, uint64(1), rev.Revision)
	require.Equal(t, "## Intro\n\nEdited **text**", f.coord.Document().Text)

	resp, body = f.do(t, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var conf coordinator.Confirmation
	require.NoError(t, json.Unmarshal(body, &conf))
	require.Equal(t, coordinator.ActionResetReport, conf.Action)

	resp, _ = f.do(t, http.MethodPost, "/api/decline/not-"+conf.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/confirm/"+conf.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, f.coord.Document().Text)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health responses.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "s1", health.SessionID)

	resp, body = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "docsync_document_revision")
}

func TestEventStream(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered after the upgrade completes.
	require.Eventually(t, func() bool {
		return events.SubscriberCount[events.Event](f.bus) == 1
	}, time.Second, 5*time.Millisecond)
	_, err = f.coord.RequestRegeneration(context.Background(), "Intro", "")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var frame struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Kind == "regeneration_requested" {
			require.Contains(t, string(frame.Data), `"section":"Intro"`)
			return
		}
	}
}

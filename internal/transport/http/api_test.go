package http

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
	"github.com/sirupsen/logrus"
	"reading-assessment-service/internal/app"
	"reading-assessment-service/internal/domain"
	"reading-assessment-service/internal/infra/kv"
	"reading-assessment-service/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.NewKVStore()
	banks := kv.NewAnswerBanks(store, log, false)
	service := app.NewAssessmentService(app.Dependencies{
		Banks:   banks,
		Cache:   memory.NewBankCache(banks, time.Minute),
		History: kv.NewHistory(store, log),
		Reports: kv.NewReports(store, log, 0, 0),
		Sheets:  memory.NewSheetStore(time.Hour),
		Logger:  log,
	})
	if err := service.SaveBank(context.Background(), domain.BookKey{Grade: "3", Book: "Fables"}, sampleBank(), false); err != nil {
		t.Fatalf("save bank: %v", err)
	}
	server := httptest.NewServer(NewAPI(service, log).Routes())
	t.Cleanup(server.Close)
	return server
}

func sampleBank() domain.QuestionBank {
	bank := domain.NewQuestionBank()
	for i, answer := range []string{"A", "B", "C"} {
		bank.Questions[i] = "Question"
		bank.Answers[i] = answer
		bank.Options[i] = domain.Options{A: "one", B: "two", C: "three", D: "four"}
	}
	return bank
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSubmitAndShareOverHTTP(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, http.MethodPost, server.URL+"/assessments",
		`{"studentName":"Mia","grade":"3","book":"Fables","answers":{"0":"A","1":"X","2":"C"}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var report domain.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Accuracy != 67 || len(report.Incorrect) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	body, _ := json.Marshal(report)
	resp = do(t, http.MethodPost, server.URL+"/reports", string(body))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on share, got %d", resp.StatusCode)
	}
	var shared domain.SharedReport
	if err := json.NewDecoder(resp.Body).Decode(&shared); err != nil {
		t.Fatalf("decode shared: %v", err)
	}

	resp = do(t, http.MethodGet, server.URL+"/reports/"+shared.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for shared report, got %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, server.URL+"/reports/report_unknown", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown report, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, server.URL+"/history", "")
	var records []domain.HistoryRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(records) != 1 || records[0].StudentName != "Mia" {
		t.Fatalf("unexpected history %+v", records)
	}
}

func TestErrorMapping(t *testing.T) {
	server := newTestServer(t)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/assessments", `{"grade":"3","book":"Fables","answers":{"0":"A"}}`, http.StatusBadRequest},
		{http.MethodPost, "/assessments", `{"studentName":"Mia","grade":"3","book":"Myths","answers":{"0":"A"}}`, http.StatusNotFound},
		{http.MethodPost, "/assessments", `{`, http.StatusBadRequest},
		{http.MethodGet, "/history/abc", "", http.StatusBadRequest},
		{http.MethodDelete, "/history/42", "", http.StatusNotFound},
		{http.MethodPost, "/import", `{"booksDatabase":{}}`, http.StatusBadRequest},
		{http.MethodPost, "/banks/3/Fables/import?format=pdf", "x", http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp := do(t, tc.method, server.URL+tc.path, tc.body)
		if resp.StatusCode != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.StatusCode)
		}
	}
}

func TestPutBankReportsAnomalies(t *testing.T) {
	server := newTestServer(t)
	body := `{"questions":["Q1","Q2"],"answers":["A"],"options":[],"dimensions":[],"explanations":[]}`

	resp := do(t, http.MethodPut, server.URL+"/banks/4/Poems", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var payload errorBody
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Anomalies) != 1 || payload.Anomalies[0].Index != 1 {
		t.Fatalf("unexpected anomalies %+v", payload.Anomalies)
	}

	resp = do(t, http.MethodPut, server.URL+"/banks/4/Poems?force=true", body)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 with force, got %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, server.URL+"/books?grade=4", "")
	var books []string
	if err := json.NewDecoder(resp.Body).Decode(&books); err != nil {
		t.Fatalf("decode books: %v", err)
	}
	if len(books) != 1 || books[0] != "Poems" {
		t.Fatalf("unexpected books %v", books)
	}
}

func TestImportCSVAndExport(t *testing.T) {
	server := newTestServer(t)
	csv := "number,answer,question\n1,B,First\n2,D,Second\n"

	resp := do(t, http.MethodPost, server.URL+"/banks/5/Tales/import?format=csv", csv)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, server.URL+"/export", "")
	var bundle domain.DataBundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if bundle.AnswersDatabase["5-Tales"].Answers[1] != "D" {
		t.Fatalf("expected imported bank in export, got %+v", bundle.AnswersDatabase)
	}

	raw, _ := json.Marshal(bundle)
	resp = do(t, http.MethodPost, server.URL+"/import", string(bytes.TrimSpace(raw)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on re-import, got %d", resp.StatusCode)
	}
}

func TestWebSocketAnswerSheetFlow(t *testing.T) {
	server := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws?student=Mia&grade=3&book=Fables"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect started event first.
	_, payload := readNext(conn, t, "started")
	if questions, _ := payload["questions"].([]any); len(questions) != 3 {
		t.Fatalf("expected three questions, got %v", payload["questions"])
	}
	readNext(conn, t, "progress")

	for _, answer := range []map[string]any{{"index": 0, "choice": "A"}, {"index": 1, "choice": "B"}} {
		if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": answer}); err != nil {
			t.Fatalf("write answer: %v", err)
		}
	}
	if err := conn.WriteJSON(map[string]any{"type": "submit"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	// Progress snapshots may be coalesced; wait for the report.
	for i := 0; i < 5; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == "report" {
			if acc, _ := payload["accuracy"].(float64); acc != 67 {
				t.Fatalf("expected accuracy 67, got %v", payload["accuracy"])
			}
			return
		}
		if typ != "progress" {
			t.Fatalf("unexpected message %s %v", typ, payload)
		}
	}
	t.Fatalf("report not received")
}

func TestWebSocketRequiresParams(t *testing.T) {
	server := newTestServer(t)
	resp := do(t, http.MethodGet, server.URL+"/ws?student=Mia", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

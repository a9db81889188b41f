package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"reading-assessment-service/internal/app"
	"reading-assessment-service/internal/domain"
	"reading-assessment-service/internal/importer"
	"reading-assessment-service/internal/metrics"
)

const maxBodyBytes = 16 << 20

// API exposes the assessment use cases as JSON over HTTP.
type API struct {
	service *app.AssessmentService
	log     *logrus.Logger
	ws      *WSHandler
}

func NewAPI(service *app.AssessmentService, log *logrus.Logger) *API {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &API{service: service, log: log, ws: NewWSHandler(service, log)}
}

// Routes builds the request multiplexer.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, metrics.Instrument(pattern, fn))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	// not instrumented: the recorder cannot be hijacked
	mux.HandleFunc("GET /ws", a.ws.ServeWS)

	handle("GET /books", a.listBooks)
	handle("GET /banks/{grade}/{book}", a.getBank)
	handle("PUT /banks/{grade}/{book}", a.putBank)
	handle("DELETE /banks/{grade}/{book}", a.deleteBank)
	handle("POST /banks/{grade}/{book}/import", a.importBank)
	handle("POST /assessments", a.submit)
	handle("GET /history", a.listHistory)
	handle("GET /history/{id}", a.viewHistory)
	handle("DELETE /history/{id}", a.deleteHistory)
	handle("POST /reports", a.shareReport)
	handle("GET /reports", a.listReports)
	handle("GET /reports/{id}", a.getReport)
	handle("GET /export", a.exportData)
	handle("POST /import", a.importData)
	return mux
}

func (a *API) listBooks(w http.ResponseWriter, r *http.Request) {
	if grade := r.URL.Query().Get("grade"); grade != "" {
		books, err := a.service.ListBooks(r.Context(), grade)
		if err != nil {
			a.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, books)
		return
	}
	catalogue, err := a.service.Catalogue(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogue)
}

func (a *API) getBank(w http.ResponseWriter, r *http.Request) {
	bank, err := a.service.Bank(r.Context(), bookKey(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (a *API) putBank(w http.ResponseWriter, r *http.Request) {
	var bank domain.QuestionBank
	if err := decodeBody(w, r, &bank); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := a.service.SaveBank(r.Context(), bookKey(r), bank, force(r)); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteBank(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteBook(r.Context(), bookKey(r)); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) importBank(w http.ResponseWriter, r *http.Request) {
	format, err := importer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	bank, err := a.service.ImportReader(r.Context(), bookKey(r), body, format, force(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	var sub domain.Submission
	if err := decodeBody(w, r, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	report, err := a.service.Submit(r.Context(), sub)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (a *API) listHistory(w http.ResponseWriter, r *http.Request) {
	records, err := a.service.History(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) viewHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	report, err := a.service.ViewHistory(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) deleteHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := a.service.DeleteHistory(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) shareReport(w http.ResponseWriter, r *http.Request) {
	var report domain.Report
	if err := decodeBody(w, r, &report); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	shared, err := a.service.ShareReport(r.Context(), report)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shared)
}

func (a *API) listReports(w http.ResponseWriter, r *http.Request) {
	list, err := a.service.SharedReports(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) getReport(w http.ResponseWriter, r *http.Request) {
	shared, err := a.service.SharedReport(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shared)
}

func (a *API) exportData(w http.ResponseWriter, r *http.Request) {
	bundle, err := a.service.ExportData(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="reading-assessment-export.json"`)
	writeJSON(w, http.StatusOK, bundle)
}

func (a *API) importData(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	n, err := a.service.ImportData(r.Context(), raw)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"banks": n})
}

type errorBody struct {
	Error     string           `json:"error"`
	Anomalies []domain.Anomaly `json:"anomalies,omitempty"`
}

// writeError maps service errors onto status codes; anything unrecognised is
// logged and reported as 500.
func (a *API) writeError(w http.ResponseWriter, err error) {
	var anomaly *domain.AnomalyError
	switch {
	case errors.As(err, &anomaly):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Anomalies: anomaly.Anomalies})
	case errors.Is(err, domain.ErrBankNotFound),
		errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrReportNotFound),
		errors.Is(err, domain.ErrSheetNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidGrade),
		errors.Is(err, domain.ErrInvalidBook),
		errors.Is(err, domain.ErrMissingStudent),
		errors.Is(err, domain.ErrEmptyAnswers),
		errors.Is(err, domain.ErrInvalidBundle),
		errors.Is(err, domain.ErrTooManyQuestions),
		errors.Is(err, importer.ErrNoAnswers),
		errors.Is(err, importer.ErrUnsupportedFormat),
		errors.Is(err, importer.ErrEmptySource):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		a.log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func bookKey(r *http.Request) domain.BookKey {
	return domain.BookKey{Grade: r.PathValue("grade"), Book: r.PathValue("book")}
}

func force(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	return v
}

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid record id"})
		return 0, false
	}
	return id, true
}

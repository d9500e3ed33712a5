package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/jdspiral/csr-amp/internal/ports/out/idempotency"
)

// withIdempotency replays a previously stored response when a POST arrives
// with an Idempotency-Key the store has already seen for the same route and
// body. A reused key with a different body is a distinct fingerprint and runs
// normally. Requests without the header pass straight through.
func (s *Server) withIdempotency(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" || s.Idem == nil {
			next(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unreadable request body", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		sum := sha256.Sum256(body)
		fp := idempotency.Fingerprint{
			Key:      idempotency.Key(key),
			Method:   r.Method,
			Route:    route,
			BodyHash: hex.EncodeToString(sum[:]),
		}

		if rec, ok, err := s.Idem.Get(r.Context(), fp); err == nil && ok {
			w.Header().Set("Content-Type", rec.ContentType)
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}

		rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		// Only successful responses are worth replaying.
		if rw.status >= 200 && rw.status < 300 {
			_ = s.Idem.Put(r.Context(), fp, idempotency.Record{
				StatusCode:  rw.status,
				ContentType: rw.Header().Get("Content-Type"),
				Body:        rw.body.Bytes(),
				CreatedAt:   time.Now().UTC(),
			})
		}
	}
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

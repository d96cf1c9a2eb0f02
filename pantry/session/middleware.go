// pantry/session/middleware.go
package session

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Middleware loads the session for every request and saves it again before
// the first byte of the response goes out. The session is available via
// FromContext(r.Context()).
func Middleware(m *Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := m.Get(r)
			if err != nil {
				logger.Warn("session load failed; starting a new one", zap.Error(err))
				if sess, err = m.New(); err != nil {
					logger.Error("session create failed", zap.Error(err))
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
			}

			r = r.WithContext(WithSession(r.Context(), sess))
			sw := &sessionWriter{
				ResponseWriter: w,
				request:        r,
				session:        sess,
				manager:        m,
				logger:         logger,
			}

			next.ServeHTTP(sw, r)

			if !sw.written {
				sw.save()
			}
		})
	}
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// FromContext retrieves the session from the request context.
// Returns nil if no session is in context (middleware not used).
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey).(*Session)
	return sess
}

// sessionWriter saves the session just before headers are sent so the
// cookie makes it into the response.
type sessionWriter struct {
	http.ResponseWriter
	request *http.Request
	session *Session
	manager *Manager
	logger  *zap.Logger
	written bool
}

func (sw *sessionWriter) save() {
	sw.written = true
	if !sw.session.Modified() {
		return
	}
	if err := sw.manager.Save(sw.ResponseWriter, sw.request, sw.session); err != nil {
		sw.logger.Error("session save failed", zap.Error(err))
	}
}

func (sw *sessionWriter) WriteHeader(code int) {
	if !sw.written {
		sw.save()
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	if !sw.written {
		sw.save()
	}
	return sw.ResponseWriter.Write(b)
}

// Flush saves the session before the headers go out.
func (sw *sessionWriter) Flush() {
	if !sw.written {
		sw.save()
	}
	_ = http.NewResponseController(sw.ResponseWriter).Flush()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *sessionWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// Flash stores a value that is removed the first time it is read.
func Flash(sess *Session, key string, value any) {
	sess.Set("_flash_"+key, value)
}

// GetFlash retrieves and removes a flash value.
func GetFlash(sess *Session, key string) (any, bool) {
	flashKey := "_flash_" + key
	value, ok := sess.Get(flashKey)
	if ok {
		sess.Delete(flashKey)
	}
	return value, ok
}

// GetFlashString retrieves and removes a flash value as a string.
func GetFlashString(sess *Session, key string) string {
	value, ok := GetFlash(sess, key)
	if !ok {
		return ""
	}
	str, _ := value.(string)
	return str
}

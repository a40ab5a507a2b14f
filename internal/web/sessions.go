package web

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/nvl/internal/core"
	"github.com/JonMunkholm/nvl/internal/logging"
	mw "github.com/JonMunkholm/nvl/internal/web/middleware"
)

const sessionCookie = "nvl_session"

// unconfirmedTTL is how long a workspace lives before its cookie has come
// back once. Clients that never keep the cookie cost one workspace for
// this long instead of the full session ttl.
const unconfirmedTTL = 5 * time.Minute

// workspace is the per-session state of both screens.
type workspace struct {
	id        string
	materials *core.MaterialScreen
	packages  *core.PackageScreen

	mu        sync.Mutex
	lastSeen  time.Time
	confirmed bool // the cookie came back at least once
	preview   *core.PreviewResponse
}

func (ws *workspace) setImportPreview(p *core.PreviewResponse) {
	ws.mu.Lock()
	ws.preview = p
	ws.mu.Unlock()
}

func (ws *workspace) importPreview() *core.PreviewResponse {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.preview
}

func (ws *workspace) touch(now time.Time) {
	ws.mu.Lock()
	ws.lastSeen = now
	ws.mu.Unlock()
}

func (ws *workspace) confirm() {
	ws.mu.Lock()
	ws.confirmed = true
	ws.mu.Unlock()
}

// expired reports whether the workspace has been idle longer than ttl, or
// longer than unconfirmedTTL when its cookie never came back.
func (ws *workspace) expired(now time.Time, ttl time.Duration) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	limit := ttl
	if !ws.confirmed {
		limit = min(ttl, unconfirmedTTL)
	}
	return now.Sub(ws.lastSeen) > limit
}

// sessionStore maps a cookie id to its workspace. Idle workspaces are swept.
type sessionStore struct {
	ttl    time.Duration
	secure bool
	create func() *workspace

	mu    sync.Mutex
	items map[string]*workspace
}

func newSessionStore(ttl time.Duration, secure bool, create func() *workspace) *sessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &sessionStore{ttl: ttl, secure: secure, create: create, items: make(map[string]*workspace)}
}

// lookup returns the workspace for id, creating a new one under a fresh id
// when id is unknown or malformed.
func (ss *sessionStore) lookup(id string) (*workspace, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if _, err := uuid.Parse(id); err == nil {
		if ws, ok := ss.items[id]; ok {
			ws.touch(time.Now())
			ws.confirm()
			return ws, false
		}
	}

	ws := ss.create()
	ws.id = uuid.NewString()
	ws.touch(time.Now())
	ss.items[ws.id] = ws
	return ws, true
}

// sweep drops expired workspaces.
func (ss *sessionStore) sweep(now time.Time) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	removed := 0
	for id, ws := range ss.items {
		if ws.expired(now, ss.ttl) {
			delete(ss.items, id)
			removed++
		}
	}
	return removed
}

func (ss *sessionStore) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.items)
}

func (ss *sessionStore) run(stop <-chan struct{}) {
	ticker := time.NewTicker(min(ss.ttl, unconfirmedTTL))
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if n := ss.sweep(now); n > 0 {
				slog.Debug("idle sessions removed", "count", n, "remaining", ss.len())
			}
		}
	}
}

// middleware attaches the caller's workspace to the request context.
func (ss *sessionStore) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}

		ws, created := ss.lookup(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    ws.id,
				Path:     "/",
				HttpOnly: true,
				Secure:   ss.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := withWorkspace(r.Context(), ws)
		ctx = logging.WithSession(ctx, ws.id)
		mw.RecordSession(ctx, ws.id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package conn

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yourusername/ember/internal/userstore"
	"github.com/yourusername/ember/pkg/ember/dbpool"
	"github.com/yourusername/ember/pkg/ember/httpmsg"
)

// acquireTimeout bounds how long a router waits for a pooled connection
// rather than stalling a worker indefinitely behind a starved pool. A
// timeout is treated as an auth failure (see below), not a server error.
const acquireTimeout = 2 * time.Second

// NewUserRouter returns a Router mirroring the reference's
// DEFAULT_HTML_TAG dispatch: "/login.html" (tag 1) and "/register.html"
// (tag 0) are verified against pool via internal/userstore, landing on
// "/welcome.html" on success or "/error.html" on failure. Any other path
// is left unrouted (the caller's default response applies).
func NewUserRouter(pool *dbpool.Pool) Router {
	return func(req *httpmsg.Request) (string, int) {
		var isLogin bool
		switch req.Path {
		case "/login.html":
			isLogin = true
		case "/register.html":
			isLogin = false
		default:
			return "", 0
		}

		name := req.Form["username"]
		pass := req.Form["password"]

		var ok bool
		err := pool.WithConn(acquireTimeout, func(db *sql.DB) error {
			v, verr := userstore.Verify(context.Background(), db, name, pass, isLogin)
			ok = v
			return verr
		})
		if err != nil {
			// A starved pool is treated as an auth failure, not a
			// server error: the client sees the same /error.html a
			// wrong password would produce.
			if errors.Is(err, dbpool.ErrTimeout) {
				return "/error.html", 200
			}
			return "/500.html", 500
		}
		if ok {
			return "/welcome.html", 200
		}
		return "/error.html", 200
	}
}

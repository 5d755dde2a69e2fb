/*
Package handler provides the HTTP handler for WebSocket connection upgrading.

The handshake verifies the session credential before the connection enters
the hub: the `token` query field of the upgrade request is checked first,
falling back to the session cookie. A failed handshake terminates the
connection with an unauthorized close frame; there is no retry at this layer.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"parley/internal/app/chat"
	"parley/internal/pkg/auth/jwt"
	"parley/internal/pkg/errs"
	"parley/internal/pkg/limiter"
	"parley/internal/pkg/logx"
	"parley/internal/pkg/randx"
	"parley/internal/pkg/resp"
)

// wsCredential extracts the handshake credential, preferring the explicit
// token field over the session cookie.
func wsCredential(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	if cookie, err := r.Cookie(jwt.SessionCookieName); err == nil {
		return cookie.Value
	}

	return ""
}

// HandleWebSocket processes WebSocket connection requests: rate limiting,
// credential verification, the upgrade itself, and client lifecycle start.
func HandleWebSocket(upgrader websocket.Upgrader, connectLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientAddr(r)

		if !connectLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		credential := wsCredential(r)

		var principal *jwt.Principal
		if credential != "" {
			verified, err := jwt.Verify(credential, deps.Config.JWTSecret)
			if err != nil {
				logx.Warn("WebSocket handshake: invalid credential", "error", err)
			} else {
				principal = verified
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		if principal == nil {
			closeWithUnauthorized(conn)
			return
		}

		connID, err := randx.ConnectionID()
		if err != nil {
			logx.Error(err, "Failed to generate connection id")
			conn.Close()
			return
		}

		client := chat.NewClient(deps.Hub, deps.Dispatcher, deps.SendGate, conn, *principal, connID, ip)

		go client.WritePump()

		deps.Hub.Register(client)

		logx.Info("WebSocket connection established",
			"user_id", principal.ID, "conn_id", connID)

		client.ReadPump()
	}
}

// closeWithUnauthorized sends the unauthorized close frame and drops the
// connection. The failed handshake is terminal; the client must re-login.
func closeWithUnauthorized(conn *websocket.Conn) {
	closeFrame := websocket.FormatCloseMessage(
		chat.WsCloseCodeUnauthorized,
		"unauthorized",
	)

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteMessage(websocket.CloseMessage, closeFrame); err != nil {
		logx.Warn("Failed to send unauthorized close frame.", "error", err)
	}

	conn.Close()
}

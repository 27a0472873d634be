package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/middleware"
	"github.com/ukydev/service-center/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// TokenValidator checks a bearer credential.
type TokenValidator interface {
	ValidateToken(token string) (*models.Claims, error)
}

// Gateway upgrades authenticated requests to websocket connections and
// joins them to the caller's personal room.
type Gateway struct {
	hub      *Hub
	tokens   TokenValidator
	users    middleware.UserLookup
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

// NewGateway creates a gateway. allowedOrigins empty means any origin. When
// users is set, deactivated accounts are refused at the handshake.
func NewGateway(hub *Hub, tokens TokenValidator, users middleware.UserLookup, allowedOrigins []string, log logrus.FieldLogger) *Gateway {
	g := &Gateway{hub: hub, tokens: tokens, users: users, log: log}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return g
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// bearerToken reads the credential from the Authorization header or, for
// browser clients that cannot set headers, the token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Handle is the gin handler for GET /ws.
func (g *Gateway) Handle(c *gin.Context) {
	token := bearerToken(c.Request)
	if token == "" {
		middleware.Abort(c, http.StatusUnauthorized, middleware.CodeUnauthorized, "Authentication token required")
		return
	}
	claims, err := g.tokens.ValidateToken(token)
	if err != nil {
		middleware.Abort(c, http.StatusUnauthorized, middleware.CodeUnauthorized, "Invalid token")
		return
	}
	if g.users != nil {
		if _, err := middleware.ActiveUser(c.Request.Context(), g.users, claims.UserID); err != nil {
			middleware.AbortUserLookup(c, err)
			return
		}
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		g.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	client := newClient(claims.UserID)
	g.hub.Join(client)
	g.log.WithFields(logrus.Fields{"user_id": claims.UserID, "room": client.room}).Info("websocket client joined")

	go g.writePump(conn, client)
	g.readPump(conn, client)
}

// readPump discards client messages and detects dead peers.
func (g *Gateway) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		g.hub.Leave(client)
		conn.Close()
		g.log.WithField("user_id", client.userID).Info("websocket client left")
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.WithError(err).WithField("user_id", client.userID).Debug("websocket read error")
			}
			return
		}
	}
}

func (g *Gateway) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

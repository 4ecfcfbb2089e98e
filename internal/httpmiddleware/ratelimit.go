package httpmiddleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"attendboard/internal/apperr"
	"attendboard/internal/response"
)

// maxIdleClients bounds the bucket map before full buckets are swept.
const maxIdleClients = 10000

// ClientLimiter is an in-memory token bucket per client IP. Each client may
// burst up to burst requests and regains perMinute tokens a minute.
type ClientLimiter struct {
	perMinute float64
	burst     float64
	now       func() time.Time

	mu      sync.Mutex
	clients map[string]*tokens
}

type tokens struct {
	left float64
	seen time.Time
}

// NewClientLimiter creates a limiter. A non-positive perMinute disables
// limiting; a non-positive burst defaults to perMinute.
func NewClientLimiter(perMinute, burst int) *ClientLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &ClientLimiter{
		perMinute: float64(perMinute),
		burst:     float64(burst),
		now:       time.Now,
		clients:   make(map[string]*tokens),
	}
}

// Middleware rejects clients that ran out of tokens with 429 and a
// Retry-After hint.
func (l *ClientLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.perMinute <= 0 {
			c.Next()
			return
		}
		client := c.ClientIP()
		if client == "" {
			client = "unknown"
		}
		if wait, ok := l.take(client); !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			response.Fail(c, apperr.RateLimited("Too many requests"))
			return
		}
		c.Next()
	}
}

// take spends one token for client. When none is left it reports how long
// until the next one.
func (l *ClientLimiter) take(client string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	t, ok := l.clients[client]
	if !ok {
		if len(l.clients) >= maxIdleClients {
			l.sweep(now)
		}
		t = &tokens{left: l.burst, seen: now}
		l.clients[client] = t
	}
	t.left = math.Min(l.burst, t.left+now.Sub(t.seen).Minutes()*l.perMinute)
	t.seen = now

	if t.left < 1 {
		missing := (1 - t.left) / l.perMinute
		return time.Duration(missing * float64(time.Minute)), false
	}
	t.left--
	return 0, true
}

// sweep forgets clients whose bucket has refilled completely.
func (l *ClientLimiter) sweep(now time.Time) {
	for client, t := range l.clients {
		if t.left+now.Sub(t.seen).Minutes()*l.perMinute >= l.burst {
			delete(l.clients, client)
		}
	}
}

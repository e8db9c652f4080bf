package middlewarectx

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
)

// limiterIdleTTL — через сколько без запросов bucket пользователя удаляется.
const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter хранит отдельный token bucket на каждого пользователя.
// Bucket'ы простаивающих пользователей периодически вычищаются, чтобы карта не росла бесконечно.
type Limiter struct {
	mu        sync.Mutex
	visitors  map[int64]*visitor
	rps       rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiter создаёт Limiter с заданной частотой и размером всплеска.
func NewLimiter(rps float64, burst int) *Limiter {
	idle := limiterIdleTTL
	// Удалять bucket можно только после полного восполнения, иначе вытеснение выдаст лишние токены.
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &Limiter{
		visitors: make(map[int64]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow сообщает, можно ли пропустить ещё один запрос пользователя.
func (l *Limiter) Allow(userID int64) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	v, ok := l.visitors[userID]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[userID] = v
	}
	v.seen = now
	l.mu.Unlock()
	return v.lim.AllowN(now, 1)
}

// sweep вызывается под l.mu.
func (l *Limiter) sweep(now time.Time) {
	for id, v := range l.visitors {
		if now.Sub(v.seen) >= l.idle {
			delete(l.visitors, id)
		}
	}
	l.lastSweep = now
}

// RateLimitMiddleware ограничивает частоту запросов пользователя.
// Должен стоять после JWTMiddleware: запросы без пользователя делят общий лимит.
func RateLimitMiddleware(l *Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserID(r.Context())
			if !l.Allow(userID) {
				log.Warn("too many requests", slog.Int64("user_id", userID))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package jobxredis

import "github.com/Abraxas-365/pgque/pkg/errx"

var redisErrors = errx.NewRegistry("JOBX_REDIS")

var (
	ErrPublish     = redisErrors.Register("PUBLISH", errx.TypeExternal, 502, "Redis publish failed")
	ErrSubscribe   = redisErrors.Register("SUBSCRIBE", errx.TypeExternal, 502, "Redis subscribe failed")
	ErrUnavailable = redisErrors.Register("UNAVAILABLE", errx.TypeExternal, 503, "Redis unavailable")
)

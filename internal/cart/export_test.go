package cart

import goredis "github.com/redis/go-redis/v9"

var errRedisNil = goredis.Nil

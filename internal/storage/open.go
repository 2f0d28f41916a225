package storage

import "fmt"

// Open builds a Store by backend name: "memory", "redis" or "mongo".
func Open(kind, redisURL, mongoURL, mongoDB string) (Store, error) {
	switch kind {
	case "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(redisURL)
	case "mongo":
		if mongoURL == "" {
			return nil, fmt.Errorf("mongo backend selected but MONGO_URL is empty")
		}
		return NewMongo(mongoURL, mongoDB)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", kind)
	}
}

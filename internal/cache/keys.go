package cache

import (
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix = "profile:%s"
)

const (
	ProfileTTL = 5 * time.Minute
)

func ProfileKey(userID string) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

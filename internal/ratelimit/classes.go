package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Route classes.
const (
	ClassAuth       = "auth"
	ClassPostCreate = "post_create"
	ClassLike       = "like"
	ClassFollow     = "follow"
	ClassDefault    = "default"
)

// Class is a bucket capacity refilled evenly over Window.
type Class struct {
	Capacity int
	Window   time.Duration
}

func (c Class) String() string {
	return fmt.Sprintf("%d/%s", c.Capacity, c.Window)
}

// DefaultClasses are the limits applied when no override is configured.
var DefaultClasses = map[string]Class{
	ClassAuth:       {Capacity: 5, Window: time.Minute},
	ClassPostCreate: {Capacity: 10, Window: time.Minute},
	ClassLike:       {Capacity: 30, Window: time.Minute},
	ClassFollow:     {Capacity: 20, Window: time.Minute},
	ClassDefault:    {Capacity: 60, Window: time.Minute},
}

// ParseClasses reads overrides in the form "like=30/1m,follow=20/1m".
// A window without a unit is taken as seconds.
func ParseClasses(raw string) (map[string]Class, error) {
	out := make(map[string]Class)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("rate limit %q: expected class=capacity/window", pair)
		}
		name := strings.ToLower(strings.TrimSpace(parts[0]))
		spec := strings.SplitN(strings.TrimSpace(parts[1]), "/", 2)
		if name == "" || len(spec) != 2 {
			return nil, fmt.Errorf("rate limit %q: expected class=capacity/window", pair)
		}

		capacity, err := strconv.Atoi(strings.TrimSpace(spec[0]))
		if err != nil || capacity <= 0 {
			return nil, fmt.Errorf("rate limit %q: capacity must be a positive integer", pair)
		}
		window, err := parseWindow(strings.TrimSpace(spec[1]))
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("rate limit %q: invalid window", pair)
		}
		out[name] = Class{Capacity: capacity, Window: window}
	}

	return out, nil
}

func parseWindow(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

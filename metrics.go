package singleton

import (
	"time"
)

type CreateHook func(slot string, duration time.Duration)

type WaitHook func(slot string, duration time.Duration, iterations int)

type DestroyHook func(slot string)

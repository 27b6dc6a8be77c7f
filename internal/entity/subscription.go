package entity

import "sync"

// Subscription delivers every new version of a live game record until released.
type Subscription struct {
	updates <-chan *LiveGame
	release func() error

	once sync.Once
	err  error
}

func NewSubscription(updates <-chan *LiveGame, release func() error) *Subscription {
	return &Subscription{
		updates: updates,
		release: release,
	}
}

func (that *Subscription) Updates() <-chan *LiveGame {
	return that.updates
}

// Release stops delivery. It is safe to call more than once.
func (that *Subscription) Release() error {
	that.once.Do(func() {
		if that.release != nil {
			that.err = that.release()
		}
	})

	return that.err
}

package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"eventadmission/internal/domain"
)

// TestAdmission_Properties drives random register and cancel sequences and checks the capacity and
// queue invariants after every step.
func TestAdmission_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 4).Draw(rt, "capacity")
		cfg := limitedConfig(capacity)
		if rapid.Bool().Draw(rt, "limitWaitingList") {
			maxWaiting := rapid.IntRange(1, 4).Draw(rt, "maxWaiting")
			cfg.MaxWaitingList = &maxWaiting
		}
		f := newFixture(rt, cfg)
		ctx := context.Background()

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := range steps {
			user := fmt.Sprintf("user%d", rapid.IntRange(0, 9).Draw(rt, fmt.Sprintf("user_%d", i)))
			if rapid.Bool().Draw(rt, fmt.Sprintf("register_%d", i)) {
				_, err := f.svc.Register(ctx, domain.RegisterInput{EventID: testEventID, UserID: user})
				if err != nil {
					require.True(rt, isAdmissionRefusal(err), "unexpected register error: %v", err)
				}
			} else {
				err := f.svc.Cancel(ctx, testEventID, user)
				if err != nil {
					require.True(rt, isCancelRefusal(err), "unexpected cancel error: %v", err)
				}
			}

			confirmed := f.countState(rt, domain.StateConfirmed)
			_, positions := f.queue(rt)
			require.LessOrEqual(rt, confirmed, capacity)
			require.Equal(rt, dense(len(positions)), positions)
			if len(positions) > 0 {
				require.Equal(rt, capacity, confirmed, "queue is non-empty while a seat is free")
			}
			if cfg.MaxWaitingList != nil {
				require.LessOrEqual(rt, len(positions), *cfg.MaxWaitingList)
			}
			require.Empty(rt, f.sink.errs)
		}
	})
}

func isAdmissionRefusal(err error) bool {
	return errorsIsAny(err, domain.ErrAlreadyRegistered, domain.ErrEventFull)
}

func isCancelRefusal(err error) bool {
	return errorsIsAny(err, domain.ErrRegistrationNotFound, domain.ErrCannotCancel)
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

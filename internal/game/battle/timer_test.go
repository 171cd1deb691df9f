package battle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
)

func TestActionTimer_Fires(t *testing.T) {
	var fired atomic.Int32
	tm := battle.NewActionTimer()
	tm.Arm(10*time.Millisecond, func() { fired.Add(1) })
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestActionTimer_RearmSupersedes(t *testing.T) {
	var first, second atomic.Int32
	tm := battle.NewActionTimer()
	tm.Arm(20*time.Millisecond, func() { first.Add(1) })
	tm.Arm(40*time.Millisecond, func() { second.Add(1) })
	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestActionTimer_Stop(t *testing.T) {
	var fired atomic.Int32
	tm := battle.NewActionTimer()
	tm.Arm(20*time.Millisecond, func() { fired.Add(1) })
	tm.Stop()
	tm.Stop()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

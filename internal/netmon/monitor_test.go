package netmon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/models"
)

func TestMonitor_InitialStateAssumesOnline(t *testing.T) {
	m := NewMonitor(logger.Nop())

	state := m.CurrentState()
	assert.True(t, state.Online)
	assert.True(t, state.Usable())
	assert.Nil(t, state.InternetReachable)
}

func TestMonitor_SetStateReplacesSnapshot(t *testing.T) {
	m := NewMonitor(logger.Nop())

	m.SetState(models.NetworkState{Online: false, ConnectionType: models.ConnectionNone})

	state := m.CurrentState()
	assert.False(t, state.Online)
	assert.False(t, state.Usable())
}

func TestMonitor_OnChangeNotifiesEveryTransition(t *testing.T) {
	m := NewMonitor(logger.Nop())

	var got []models.NetworkState
	unsubscribe := m.OnChange(func(s models.NetworkState) {
		got = append(got, s)
	})
	defer unsubscribe()

	offline := models.NetworkState{Online: false, ConnectionType: models.ConnectionNone}
	online := models.NetworkState{Online: true, ConnectionType: models.ConnectionWifi}

	m.SetState(offline)
	m.SetState(online)
	// redundant transition must still be relayed
	m.SetState(online)

	require.Len(t, got, 3)
	assert.False(t, got[0].Online)
	assert.True(t, got[1].Online)
	assert.True(t, got[2].Online)
}

func TestMonitor_UnsubscribeStopsNotifications(t *testing.T) {
	m := NewMonitor(logger.Nop())

	calls := 0
	unsubscribe := m.OnChange(func(models.NetworkState) { calls++ })

	m.SetState(models.NetworkState{Online: true})
	unsubscribe()
	unsubscribe() // idempotent
	m.SetState(models.NetworkState{Online: false})

	assert.Equal(t, 1, calls)
}

func TestNetworkState_UnknownReachabilityFailsOpen(t *testing.T) {
	reachable := true
	unreachable := false

	assert.True(t, models.NetworkState{Online: true}.Usable())
	assert.True(t, models.NetworkState{Online: true, InternetReachable: &reachable}.Usable())
	assert.False(t, models.NetworkState{Online: true, InternetReachable: &unreachable}.Usable())
	assert.False(t, models.NetworkState{Online: false, InternetReachable: &reachable}.Usable())
}

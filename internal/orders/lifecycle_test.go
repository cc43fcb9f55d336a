package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanvirc/bazarly-backend/pkg/enums"
)

func TestPhaseProjectionRoundTrip(t *testing.T) {
	for _, phase := range []Phase{
		PhasePlaced,
		PhaseAssigned,
		PhaseOutForDelivery,
		PhaseDelivered,
		PhaseCancelled,
		PhaseRestored,
	} {
		o, d := phase.Project()
		got, err := PhaseOf(o, d)
		require.NoError(t, err)
		assert.Equal(t, phase, got)
	}
}

func TestPhaseProjections(t *testing.T) {
	cases := []struct {
		phase    Phase
		order    enums.OrderStatus
		delivery enums.DeliveryStatus
	}{
		{PhasePlaced, enums.OrderStatusPending, enums.DeliveryStatusPending},
		{PhaseAssigned, enums.OrderStatusShipped, enums.DeliveryStatusAssigned},
		{PhaseOutForDelivery, enums.OrderStatusShipped, enums.DeliveryStatusOutForDelivery},
		{PhaseDelivered, enums.OrderStatusDelivered, enums.DeliveryStatusDelivered},
		{PhaseCancelled, enums.OrderStatusCancelled, enums.DeliveryStatusFailed},
		{PhaseRestored, enums.OrderStatusRestored, enums.DeliveryStatusFailed},
	}
	for _, tc := range cases {
		o, d := tc.phase.Project()
		assert.Equal(t, tc.order, o, "order status for %s", tc.phase)
		assert.Equal(t, tc.delivery, d, "delivery status for %s", tc.phase)
	}
}

func TestPhaseOfRejectsDriftedPair(t *testing.T) {
	_, err := PhaseOf(enums.OrderStatusDelivered, enums.DeliveryStatusPending)
	require.Error(t, err)
}

func TestPhaseTransitions(t *testing.T) {
	assert.True(t, PhasePlaced.CanTransitionTo(PhaseAssigned))
	assert.True(t, PhasePlaced.CanTransitionTo(PhaseCancelled))
	assert.True(t, PhasePlaced.CanTransitionTo(PhaseRestored))
	assert.True(t, PhaseAssigned.CanTransitionTo(PhaseOutForDelivery))
	assert.True(t, PhaseOutForDelivery.CanTransitionTo(PhaseDelivered))
	assert.True(t, PhaseOutForDelivery.CanTransitionTo(PhaseCancelled))
	assert.True(t, PhaseCancelled.CanTransitionTo(PhaseRestored))

	assert.False(t, PhasePlaced.CanTransitionTo(PhaseOutForDelivery))
	assert.False(t, PhaseDelivered.CanTransitionTo(PhaseCancelled))
	assert.False(t, PhaseRestored.CanTransitionTo(PhasePlaced))
	assert.False(t, PhaseCancelled.CanTransitionTo(PhasePlaced))

	assert.True(t, PhaseDelivered.Terminal())
	assert.True(t, PhaseRestored.Terminal())
	assert.False(t, PhaseCancelled.Terminal())
}

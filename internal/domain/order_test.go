package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, s := range []string{"pendiente", "en camino", "entregado"} {
		st, err := ParseOrderStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(st))
	}

	_, err := ParseOrderStatus("shipped")
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "status", decodeErr.Field)
	assert.Equal(t, "shipped", decodeErr.Value)
}

func TestParseMeetingPoint(t *testing.T) {
	assert.Len(t, MeetingPoints, 15)

	mp, err := ParseMeetingPoint("Biblioteca")
	require.NoError(t, err)
	assert.Equal(t, MeetingPoint("Biblioteca"), mp)

	_, err = ParseMeetingPoint("biblioteca")
	assert.Error(t, err)
}

func TestParsePaymentMethod(t *testing.T) {
	for _, s := range []string{"Efectivo", "Nequi", "Llaves"} {
		_, err := ParsePaymentMethod(s)
		assert.NoError(t, err, s)
	}

	_, err := ParsePaymentMethod("Tarjeta")
	assert.EqualError(t, err, `invalid payment_method "Tarjeta"`)
}

func TestOrder_SellerViews(t *testing.T) {
	o := &Order{Items: []OrderItem{
		{ProductID: "p1", Quantity: 2, SellerID: "s1"},
		{ProductID: "p2", Quantity: 1, SellerID: "s2"},
		{ProductID: "p3", Quantity: 4, SellerID: "s1"},
	}}

	assert.Equal(t, []string{"s1", "s2"}, o.SellerIDs())
	assert.Equal(t, []OrderItem{
		{ProductID: "p1", Quantity: 2, SellerID: "s1"},
		{ProductID: "p3", Quantity: 4, SellerID: "s1"},
	}, o.ItemsForSeller("s1"))
	assert.Empty(t, o.ItemsForSeller("s3"))
}

package crm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTenantLease(t *testing.T) {
	cases := []struct {
		name   string
		object map[string]interface{}
		errMsg string
	}{
		{
			name: "valid date range",
			object: map[string]interface{}{
				"lease_start_date": "2026-01-01",
				"lease_end_date":   "2027-01-01",
			},
		},
		{
			name: "valid rfc3339 range",
			object: map[string]interface{}{
				"lease_start_date": "2026-01-01T00:00:00Z",
				"lease_end_date":   "2026-07-01T00:00:00Z",
			},
		},
		{
			name: "end equals start",
			object: map[string]interface{}{
				"lease_start_date": "2026-01-01",
				"lease_end_date":   "2026-01-01",
			},
			errMsg: "lease_end_date must be after lease_start_date",
		},
		{
			name: "end before start",
			object: map[string]interface{}{
				"lease_start_date": "2026-06-01",
				"lease_end_date":   "2026-01-01",
			},
			errMsg: "lease_end_date must be after lease_start_date",
		},
		{
			name: "start date only",
			object: map[string]interface{}{
				"lease_start_date": "2026-01-01",
				"lease_end_date":   nil,
			},
		},
		{
			name:   "no dates",
			object: map[string]interface{}{"notes": "no lease yet"},
		},
		{
			name: "unparsable start date",
			object: map[string]interface{}{
				"lease_start_date": "01/06/2026",
				"lease_end_date":   "2027-01-01",
			},
			errMsg: "invalid lease_start_date format",
		},
		{
			name: "wrong type",
			object: map[string]interface{}{
				"lease_start_date": 20260101,
				"lease_end_date":   "2027-01-01",
			},
			errMsg: "invalid lease_start_date format",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := validateTenantLease(context.Background(), c.object)
			if c.errMsg == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, c.errMsg, err.Error())
			}
		})
	}
}

func TestCatalogue(t *testing.T) {
	catalogue := NewRegistry()
	assert.Len(t, catalogue.Internal(), 19)
	assert.Len(t, catalogue.Upstream(), 5)

	client, ok := catalogue.Resolve("client")
	require.True(t, ok)
	assert.Equal(t, "clients", client.Table)
	assert.True(t, client.HasField("status"))

	tenant, ok := catalogue.Resolve("tenant")
	require.True(t, ok)
	assert.NotNil(t, tenant.Validate)

	brokerage, ok := catalogue.Resolve("propertybrokerage")
	require.True(t, ok)
	assert.True(t, brokerage.Upstream)
}

func TestContactSchema(t *testing.T) {
	validator, err := NewJSONValidator()
	require.NoError(t, err)
	require.True(t, validator.HasSchema(ContactSchemaID))

	assert.NoError(t, validator.ValidateStruct(map[string]interface{}{
		"full_name": "דנה לוי",
		"phone":     "052-1234567",
	}, ContactSchemaID))

	assert.Error(t, validator.ValidateStruct(map[string]interface{}{
		"full_name": "דנה לוי",
		"phone":     "not a phone",
	}, ContactSchemaID))
}

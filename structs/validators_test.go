package provision815

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() SubscriberForm {
	return SubscriberForm{
		Name:       "Maria Perez",
		Email:      "maria@example.com",
		Phone:      "04141234567",
		Address:    "Av Principal 10",
		NationalID: "V12345678",
		Plan:       "3",
		MAC:        "00:11:22:AA:bb:cc",
		Mode:       "dhcp",
		DhcpAccess: "5",
		Equipment:  "7",
		Node:       "1400",
		Connector:  "815",
		Serial:     "HWTC11112222",
		Zone:       "GTRE01",
	}
}

func TestCheckValid(t *testing.T) {
	t.Run("complete form", func(t *testing.T) {
		form := validForm()
		require.NoError(t, form.CheckValid())
	})

	t.Run("geo coordinates optional", func(t *testing.T) {
		form := validForm()
		form.Lat = ""
		form.Lng = ""
		require.NoError(t, form.CheckValid())
	})

	t.Run("missing required field", func(t *testing.T) {
		form := validForm()
		form.NationalID = ""
		err := form.CheckValid()
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "cedula", verr.Field)
	})

	t.Run("malformed mac", func(t *testing.T) {
		for _, mac := range []string{"001122AABBCC", "00-11-22-AA-BB-CC", "00:11:22:AA:BB", "zz:11:22:AA:BB:CC"} {
			form := validForm()
			form.MAC = mac
			err := form.CheckValid()
			require.Error(t, err, mac)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "mac", verr.Field)
		}
	})
}

func TestCheckReferences(t *testing.T) {
	plans := []CatalogItem{{PK: "3", Name: "Plan 100M"}}
	equipment := []CatalogItem{{PK: "7", Name: "ONT Huawei"}}
	dhcpAccess := []CatalogItem{{PK: "5", Name: "DHCP Norte"}}

	t.Run("all references offered", func(t *testing.T) {
		form := validForm()
		require.NoError(t, form.CheckReferences(plans, equipment, dhcpAccess))
	})

	t.Run("plan from another zone", func(t *testing.T) {
		form := validForm()
		form.Plan = "99"
		err := form.CheckReferences(plans, equipment, dhcpAccess)
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "plan", verr.Field)
	})
}

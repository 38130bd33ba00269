package backend815

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	provision815 "github.com/luysmarlcm/provision815/structs"
)

func testClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := &Client{
		BaseURL: server.URL,
		HTTP:    server.Client(),
	}
	return client, server
}

func TestConnectionPK(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{"object with pk", `{"pk":"42"}`, "42", false},
		{"object with id", `{"id":"42"}`, "42", false},
		{"object with numeric pk", `{"pk":42}`, "42", false},
		{"single element list", `[{"id":"42"}]`, "42", false},
		{"list with numeric pk", `[{"pk":7}]`, "7", false},
		{"empty list", `[]`, "", true},
		{"null", `null`, "", true},
		{"no usable key", `{"foo":1}`, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ConnectionPK(json.RawMessage(tc.payload))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseAvailableONU(t *testing.T) {
	t.Run("serial with alias", func(t *testing.T) {
		onu := ParseAvailableONU("HWTC12345678<br>(Casa Verde)")
		assert.Equal(t, "HWTC12345678", onu.Serial)
		assert.Equal(t, "HWTC12345678 (Casa Verde)", onu.DisplayName)
	})

	t.Run("serial only", func(t *testing.T) {
		onu := ParseAvailableONU("HWTC12345678")
		assert.Equal(t, "HWTC12345678", onu.Serial)
		assert.Equal(t, "HWTC12345678", onu.DisplayName)
	})

	t.Run("padded serial", func(t *testing.T) {
		onu := ParseAvailableONU("  HWTC12345678 <br> ")
		assert.Equal(t, "HWTC12345678", onu.Serial)
		assert.Equal(t, "HWTC12345678", onu.DisplayName)
	})
}

func TestListAvailableONUs(t *testing.T) {
	client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/onus-disponibles/GTRE01", r.URL.Path)
		w.Write([]byte(`{"onusDisponibles":["HWTC1111<br>(Norte)","HWTC2222"]}`))
	})
	defer server.Close()

	onus := client.ListAvailableONUs("GTRE01")
	require.Len(t, onus, 2)
	assert.Equal(t, "HWTC1111 (Norte)", onus[0].DisplayName)
	assert.Equal(t, "HWTC2222", onus[1].Serial)
}

func TestCatalogDegradesToEmpty(t *testing.T) {
	client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})
	defer server.Close()

	var reported []string
	client.Diag = func(op string, err error) {
		reported = append(reported, op)
	}

	assert.Empty(t, client.ListPlans("GTRE01"))
	assert.Empty(t, client.ListZones())
	assert.Len(t, reported, 2)
}

func TestNodeResources(t *testing.T) {
	t.Run("null keys", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/nodo/GTRE01/1400", r.URL.Path)
			w.Write([]byte(`{"ip":null,"onu":null}`))
		})
		defer server.Close()

		answer, err := client.NodeResources("GTRE01", 1400)
		require.NoError(t, err)
		assert.Nil(t, answer.IP)
		assert.Nil(t, answer.ONU)
	})

	t.Run("error body", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message":"nodo desconocido"}`))
		})
		defer server.Close()

		_, err := client.NodeResources("GTRE01", 9)
		require.EqualError(t, err, "nodo desconocido")
	})
}

func TestCreateSubscriber(t *testing.T) {
	t.Run("both payloads", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/clientes/crear", r.URL.Path)
			var body struct {
				FormData provision815.SubscriberForm `json:"formData"`
				PkIP     string                      `json:"pkIp"`
				Zone     string                      `json:"zone"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "55", body.PkIP)
			assert.Equal(t, "GTRE01", body.Zone)
			w.Write([]byte(`{"cliente":{"pk":"7","nombre":"Maria"},"conexion":{"pk":"42"}}`))
		})
		defer server.Close()

		cliente, conexion, err := client.CreateSubscriber(provision815.SubscriberForm{Name: "Maria"}, "55", "GTRE01")
		require.NoError(t, err)
		assert.JSONEq(t, `{"pk":"7","nombre":"Maria"}`, string(cliente))
		assert.JSONEq(t, `{"pk":"42"}`, string(conexion))
	})

	t.Run("error message on 200", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message":"La IP ya no esta disponible"}`))
		})
		defer server.Close()

		_, _, err := client.CreateSubscriber(provision815.SubscriberForm{}, "55", "GTRE01")
		var derr *provision815.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "La IP ya no esta disponible", derr.Message)
	})

	t.Run("transport failure", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {})
		server.Close()

		_, _, err := client.CreateSubscriber(provision815.SubscriberForm{}, "55", "GTRE01")
		var terr *provision815.TransportError
		require.ErrorAs(t, err, &terr)
	})
}

func TestCreateConnection(t *testing.T) {
	t.Run("wrapped connection object", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/conexiones/crear", r.URL.Path)
			var body struct {
				Zone   string `json:"zone"`
				Serial string `json:"numeroDeSerie"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "HWTC1111", body.Serial)
			w.Write([]byte(`{"conexion":{"pk":"77"}}`))
		})
		defer server.Close()

		id, err := client.CreateConnection("GTRE01", "HWTC1111")
		require.NoError(t, err)
		assert.Equal(t, "77", id)
	})

	t.Run("bare connection object", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"pk":77}`))
		})
		defer server.Close()

		id, err := client.CreateConnection("GTRE01", "HWTC1111")
		require.NoError(t, err)
		assert.Equal(t, "77", id)
	})

	t.Run("domain failure", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message":"serial not found in available-equipment list"}`))
		})
		defer server.Close()

		_, err := client.CreateConnection("GTRE01", "HWTC1111")
		var derr *provision815.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, provision815.ConditionSerialNotFound, derr.Condition)
	})
}

func TestProvision(t *testing.T) {
	t.Run("flat success", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/cliente/aprovisionar", r.URL.Path)
			var body struct {
				Zone    string      `json:"zone"`
				PK      string      `json:"pkConexion"`
				Serial  string      `json:"numeroDeSerie"`
				Profile json.Number `json:"conectorPerfil"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "42", body.PK)
			assert.Equal(t, "9", body.Profile.String())
			w.Write([]byte(`{"estado":"OK","mensaje":"Conexion aprovisionada","logs":["paso 1","paso 2"]}`))
		})
		defer server.Close()

		outcome, err := client.Provision("GTRE01", "42", "HWTC1111", "9")
		require.NoError(t, err)
		assert.True(t, outcome.OK())
		assert.Equal(t, "Conexion aprovisionada", outcome.Message)
		assert.Equal(t, []string{"paso 1", "paso 2"}, outcome.Logs)
	})

	t.Run("failed with mensaje and logs", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"estado":"FAILED","mensaje":"fallo en OLT","logs":["a","b","c"]}`))
		})
		defer server.Close()

		outcome, err := client.Provision("GTRE01", "42", "HWTC1111", "9")
		require.NoError(t, err)
		assert.False(t, outcome.OK())
		assert.Equal(t, "fallo en OLT", outcome.Message)
		assert.Equal(t, []string{"a", "b", "c"}, outcome.Logs)
		assert.Equal(t, provision815.ConditionGeneric, outcome.Condition)
	})

	t.Run("wrapped salida", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"salida":{"estado":"OK","mensaje":"listo","detalle":{"vlan":120}},"logs":["x"]}`))
		})
		defer server.Close()

		outcome, err := client.Provision("GTRE01", "42", "HWTC1111", "9")
		require.NoError(t, err)
		assert.True(t, outcome.OK())
		assert.Equal(t, "listo", outcome.Message)
		assert.Equal(t, []string{"x"}, outcome.Logs)
	})

	t.Run("error message wins over estado", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"El serial no existe","estado":"OK","logs":["probe"]}`))
		})
		defer server.Close()

		outcome, err := client.Provision("GTRE01", "42", "HWTC1111", "9")
		require.NoError(t, err)
		assert.False(t, outcome.OK())
		assert.Equal(t, "El serial no existe", outcome.Message)
		assert.Equal(t, provision815.ConditionSerialNotFound, outcome.Condition)
		assert.Equal(t, []string{"probe"}, outcome.Logs)
	})

	t.Run("transport failure", func(t *testing.T) {
		client, server := testClient(func(w http.ResponseWriter, r *http.Request) {})
		server.Close()

		_, err := client.Provision("GTRE01", "42", "HWTC1111", "9")
		var terr *provision815.TransportError
		require.ErrorAs(t, err, &terr)
	})
}

package tx

import (
	"encoding/json"
	"testing"
)

// FuzzTxUnmarshal tests that arbitrary JSON input does not panic
// when unmarshaled into a Transaction and projected.
func FuzzTxUnmarshal(f *testing.F) {
	f.Add([]byte(`{"type":"transfer","fee":"1","timestamp":1,"recipientAddress":"ldpos0000000000000000000000000000000000000000","amount":"5"}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"type":"registerMultisigWallet","memberAddresses":null,"signatures":[{}]}`))
	f.Add([]byte(`{"type":"registerSigDetails","newNextSigKeyIndex":0}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var tx Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return
		}
		id1, err := tx.ComputeID()
		if err != nil {
			return
		}
		id2, _ := tx.Clone().ComputeID()
		if id1 != id2 {
			t.Fatalf("ComputeID() not stable: %s vs %s", id1, id2)
		}
		tx.Validate()
		tx.SigningPayload()
	})
}

package model

import (
	"encoding/json"
	"testing"
)

func TestEventJSONStringAmounts(t *testing.T) {
	payload := Event{
		Seq:         3,
		Kind:        EventSwap,
		Pool:        "0x3333333333333333333333333333333333333333",
		Account:     "0x1111111111111111111111111111111111111111",
		Recipient:   "0x2222222222222222222222222222222222222222",
		AmountIn:    "100000000000000000000",
		AmountOut:   "97750848089103280585",
		Reserve0:    "5100000000000000000000",
		Reserve1:    "4902249151910896719415",
		TotalSupply: "5000000000000000000000",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"amount_in", "amount_out", "reserve0", "reserve1", "total_supply"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
	if decoded["kind"] != "swap" {
		t.Fatalf("kind mismatch: %v", decoded["kind"])
	}
	if _, ok := decoded["shares"]; ok {
		t.Fatalf("empty shares should be omitted")
	}
}

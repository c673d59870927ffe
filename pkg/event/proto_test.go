package event

import (
	"math"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// decodeFields walks a protobuf message and returns its scalar fields by number.
func decodeFields(t *testing.T, b []byte) map[protowire.Number]any {
	t.Helper()
	out := make(map[protowire.Number]any)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			t.Fatalf("consume tag: %v", protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				t.Fatalf("field %d: %v", num, protowire.ParseError(m))
			}
			out[num] = v
			b = b[m:]
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				t.Fatalf("field %d: %v", num, protowire.ParseError(m))
			}
			out[num] = int64(v)
			b = b[m:]
		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				t.Fatalf("field %d: %v", num, protowire.ParseError(m))
			}
			out[num] = math.Float64frombits(v)
			b = b[m:]
		default:
			t.Fatalf("unexpected wire type %v for field %d", typ, num)
		}
	}
	return out
}

func TestImpressionAppendProto(t *testing.T) {
	imp := Impression{
		ImpressionID:   "imp-1",
		UserID:         "user-9",
		CampaignID:     "camp-1",
		AdID:           "ad-42",
		DeviceType:     "tablet",
		Browser:        "edge",
		EventTimestamp: 1_700_000_000_000,
		Cost:           0.37,
	}

	fields := decodeFields(t, imp.AppendProto(nil))
	want := map[protowire.Number]any{
		1: "imp-1",
		2: "user-9",
		3: "camp-1",
		4: "ad-42",
		5: "tablet",
		6: "edge",
		7: int64(1_700_000_000_000),
		8: 0.37,
	}
	for num, v := range want {
		if fields[num] != v {
			t.Errorf("field %d = %v, want %v", num, fields[num], v)
		}
	}
}

func TestClickAppendProto(t *testing.T) {
	c := Click{ClickID: "clk-1", ImpressionID: "imp-1", UserID: "user-9", EventTimestamp: 1234}

	prefix := []byte{0xff}
	b := c.AppendProto(prefix)
	if b[0] != 0xff {
		t.Fatal("AppendProto must keep the existing prefix")
	}

	fields := decodeFields(t, b[1:])
	if fields[1] != "clk-1" || fields[2] != "imp-1" || fields[3] != "user-9" || fields[4] != int64(1234) {
		t.Fatalf("unexpected fields %v", fields)
	}
}

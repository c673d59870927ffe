package event

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Protobuf field numbers. Consumers decode with:
//
//	message Impression {
//	  string impression_id = 1;
//	  string user_id = 2;
//	  string campaign_id = 3;
//	  string ad_id = 4;
//	  string device_type = 5;
//	  string browser = 6;
//	  int64 event_timestamp = 7;
//	  double cost = 8;
//	}
//
//	message Click {
//	  string click_id = 1;
//	  string impression_id = 2;
//	  string user_id = 3;
//	  int64 event_timestamp = 4;
//	}
const (
	impressionIDField        protowire.Number = 1
	impressionUserField      protowire.Number = 2
	impressionCampaignField  protowire.Number = 3
	impressionAdField        protowire.Number = 4
	impressionDeviceField    protowire.Number = 5
	impressionBrowserField   protowire.Number = 6
	impressionTimestampField protowire.Number = 7
	impressionCostField      protowire.Number = 8

	clickIDField         protowire.Number = 1
	clickImpressionField protowire.Number = 2
	clickUserField       protowire.Number = 3
	clickTimestampField  protowire.Number = 4
)

// AppendProto implements Record.
func (i Impression) AppendProto(b []byte) []byte {
	b = appendString(b, impressionIDField, i.ImpressionID)
	b = appendString(b, impressionUserField, i.UserID)
	b = appendString(b, impressionCampaignField, i.CampaignID)
	b = appendString(b, impressionAdField, i.AdID)
	b = appendString(b, impressionDeviceField, i.DeviceType)
	b = appendString(b, impressionBrowserField, i.Browser)
	b = appendInt64(b, impressionTimestampField, i.EventTimestamp)
	b = protowire.AppendTag(b, impressionCostField, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(i.Cost))
	return b
}

// AppendProto implements Record.
func (c Click) AppendProto(b []byte) []byte {
	b = appendString(b, clickIDField, c.ClickID)
	b = appendString(b, clickImpressionField, c.ImpressionID)
	b = appendString(b, clickUserField, c.UserID)
	b = appendInt64(b, clickTimestampField, c.EventTimestamp)
	return b
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

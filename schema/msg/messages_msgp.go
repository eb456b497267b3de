package msg

import (
	"github.com/alepiz/counterprocessor/schema"
	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg implements msgp.Marshaler
func (z *Value) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	// map header, size 3
	o = append(o, 0x83)
	o = msgp.AppendString(o, "OCID")
	o = msgp.AppendUint64(o, uint64(z.OCID))
	o = msgp.AppendString(o, "Timestamp")
	o = msgp.AppendInt64(o, z.Timestamp)
	o = msgp.AppendString(o, "Data")
	o, err = msgp.AppendIntf(o, z.Data)
	if err != nil {
		err = msgp.WrapError(err, "Data")
		return
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Value) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "OCID":
			var u uint64
			u, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "OCID")
				return
			}
			z.OCID = schema.OCID(u)
		case "Timestamp":
			z.Timestamp, bts, err = msgp.ReadInt64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Timestamp")
				return
			}
		case "Data":
			z.Data, bts, err = msgp.ReadIntfBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Data")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *Value) Msgsize() (s int) {
	s = 1 + 5 + msgp.Uint64Size + 10 + msgp.Int64Size + 5 + msgp.GuessSize(z.Data)
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *FetchRequest) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	// map header, size 5
	o = append(o, 0x85)
	o = msgp.AppendString(o, "ID")
	o = msgp.AppendUint64(o, uint64(z.ID))
	o = msgp.AppendString(o, "Position")
	o = msgp.AppendBool(o, z.Position)
	o = msgp.AppendString(o, "Shift")
	o = msgp.AppendInt64(o, z.Shift)
	o = msgp.AppendString(o, "Count")
	o = msgp.AppendInt64(o, z.Count)
	o = msgp.AppendString(o, "WantType")
	o = msgp.AppendUint8(o, uint8(z.WantType))
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *FetchRequest) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "ID":
			var u uint64
			u, bts, err = msgp.ReadUint64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "ID")
				return
			}
			z.ID = schema.OCID(u)
		case "Position":
			z.Position, bts, err = msgp.ReadBoolBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Position")
				return
			}
		case "Shift":
			z.Shift, bts, err = msgp.ReadInt64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Shift")
				return
			}
		case "Count":
			z.Count, bts, err = msgp.ReadInt64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Count")
				return
			}
		case "WantType":
			var u uint8
			u, bts, err = msgp.ReadUint8Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "WantType")
				return
			}
			z.WantType = WantType(u)
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *FetchRequest) Msgsize() (s int) {
	s = 1 + 3 + msgp.Uint64Size + 9 + msgp.BoolSize + 6 + msgp.Int64Size + 6 + msgp.Int64Size + 9 + msgp.Uint8Size
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *FetchResponse) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	// map header, size 2
	o = append(o, 0x82)
	o = msgp.AppendString(o, "Records")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Records)))
	for i := range z.Records {
		// map header, size 2
		o = append(o, 0x82)
		o = msgp.AppendString(o, "Timestamp")
		o = msgp.AppendInt64(o, z.Records[i].Timestamp)
		o = msgp.AppendString(o, "Data")
		o, err = msgp.AppendIntf(o, z.Records[i].Data)
		if err != nil {
			err = msgp.WrapError(err, "Records", i, "Data")
			return
		}
	}
	o = msgp.AppendString(o, "GotAll")
	o = msgp.AppendBool(o, z.GotAll)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *FetchResponse) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "Records":
			var zb0002 uint32
			zb0002, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Records")
				return
			}
			if cap(z.Records) >= int(zb0002) {
				z.Records = z.Records[:zb0002]
			} else {
				z.Records = make([]schema.Record, zb0002)
			}
			for i := range z.Records {
				bts, err = unmarshalRecord(&z.Records[i], bts)
				if err != nil {
					err = msgp.WrapError(err, "Records", i)
					return
				}
			}
		case "GotAll":
			z.GotAll, bts, err = msgp.ReadBoolBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "GotAll")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

func unmarshalRecord(z *schema.Record, bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	*z = schema.Record{}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "Timestamp":
			z.Timestamp, bts, err = msgp.ReadInt64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Timestamp")
				return
			}
		case "Data":
			z.Data, bts, err = msgp.ReadIntfBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Data")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *FetchResponse) Msgsize() (s int) {
	s = 1 + 8 + msgp.ArrayHeaderSize
	for i := range z.Records {
		s += 1 + 10 + msgp.Int64Size + 5 + msgp.GuessSize(z.Records[i].Data)
	}
	s += 7 + msgp.BoolSize
	return
}

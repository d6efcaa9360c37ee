package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the types that cross the storage
// boundary. Field order is part of the on-disk format; append new fields
// at the end only.

// IDMUS serializes ID values.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (id ID, n int, err error) {
	num, n, err := varint.Uint64.Unmarshal(bs)
	return ID(num), n, err
}

func (idMUS) Size(id ID) (size int) {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

// timeMicroMUS serializes timestamps as Unix microseconds, matching the
// precision of the date index keys.
type timeMicroMUS struct{}

func (timeMicroMUS) Marshal(t time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeMicroMUS) Unmarshal(bs []byte) (t time.Time, n int, err error) {
	micro, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func (timeMicroMUS) Size(t time.Time) (size int) {
	return varint.Int64.Size(t.UnixMicro())
}

func (timeMicroMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

var (
	timeMUS   = timeMicroMUS{}
	vectorMUS = ord.NewSliceSer[float32](raw.Float32)
)

// EntityMUS serializes Entity values.
var EntityMUS = entityMUS{}

type entityMUS struct{}

func (entityMUS) Marshal(e Entity, bs []byte) (n int) {
	n = IDMUS.Marshal(e.Id, bs)
	n += ord.String.Marshal(e.Name, bs[n:])
	n += ord.String.Marshal(e.Category, bs[n:])
	n += varint.Int.Marshal(int(e.Attraction), bs[n:])
	n += ord.String.Marshal(e.Description, bs[n:])
	n += ord.String.Marshal(e.Address, bs[n:])
	n += raw.Float64.Marshal(e.Lat, bs[n:])
	n += raw.Float64.Marshal(e.Lon, bs[n:])
	n += vectorMUS.Marshal(e.Vector, bs[n:])
	n += timeMUS.Marshal(e.InsertedAt, bs[n:])
	n += timeMUS.Marshal(e.UpdatedAt, bs[n:])
	return n
}

func (entityMUS) Unmarshal(bs []byte) (e Entity, n int, err error) {
	var n1 int
	e.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	e.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Category, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var attraction int
	attraction, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Attraction = AttractionType(attraction)
	e.Description, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Address, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Lat, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Lon, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.InsertedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (entityMUS) Size(e Entity) (size int) {
	size = IDMUS.Size(e.Id)
	size += ord.String.Size(e.Name)
	size += ord.String.Size(e.Category)
	size += varint.Int.Size(int(e.Attraction))
	size += ord.String.Size(e.Description)
	size += ord.String.Size(e.Address)
	size += raw.Float64.Size(e.Lat)
	size += raw.Float64.Size(e.Lon)
	size += vectorMUS.Size(e.Vector)
	size += timeMUS.Size(e.InsertedAt)
	size += timeMUS.Size(e.UpdatedAt)
	return size
}

func (s entityMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

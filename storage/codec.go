package storage

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/reportlens/core"
)

// Field layout follows the struct declaration order. Timestamps are stored as
// Unix microseconds.

var (
	IDMUS      = idMUS{}
	EntityMUS  = entityMUS{}
	FailureMUS = failureMUS{}
	ReportMUS  = reportMUS{}
)

type idMUS struct{}

func (s idMUS) Marshal(v core.ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v core.ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(u), n, err
}

func (s idMUS) Size(v core.ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

type entityMUS struct{}

func (s entityMUS) Marshal(v core.Entity, bs []byte) (n int) {
	n = ord.String.Marshal(v.Text, bs)
	n += ord.String.Marshal(v.Category, bs[n:])
	n += varint.PositiveInt.Marshal(v.Start, bs[n:])
	n += varint.PositiveInt.Marshal(v.End, bs[n:])
	return
}

func (s entityMUS) Unmarshal(bs []byte) (v core.Entity, n int, err error) {
	v.Text, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Category, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Start, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.End, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	return
}

func (s entityMUS) Size(v core.Entity) (size int) {
	size = ord.String.Size(v.Text)
	size += ord.String.Size(v.Category)
	size += varint.PositiveInt.Size(v.Start)
	size += varint.PositiveInt.Size(v.End)
	return
}

type failureMUS struct{}

// ChunkIndex is -1 for whole-report failures, so it uses the signed encoding.
func (s failureMUS) Marshal(v core.ChunkFailure, bs []byte) (n int) {
	n = varint.Int.Marshal(v.ChunkIndex, bs)
	n += ord.String.Marshal(string(v.Stage), bs[n:])
	n += ord.String.Marshal(v.Err, bs[n:])
	return
}

func (s failureMUS) Unmarshal(bs []byte) (v core.ChunkFailure, n int, err error) {
	v.ChunkIndex, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1    int
		stage string
	)
	stage, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Stage = core.FailureStage(stage)
	v.Err, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s failureMUS) Size(v core.ChunkFailure) (size int) {
	size = varint.Int.Size(v.ChunkIndex)
	size += ord.String.Size(string(v.Stage))
	size += ord.String.Size(v.Err)
	return
}

type reportMUS struct{}

func (s reportMUS) Marshal(v core.StructuredReport, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Source, bs[n:])
	n += varint.PositiveInt.Marshal(len(v.Entities), bs[n:])
	for _, e := range v.Entities {
		n += EntityMUS.Marshal(e, bs[n:])
	}
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += ord.String.Marshal(v.Disclaimer, bs[n:])
	n += ord.String.Marshal(v.Notice, bs[n:])
	n += varint.PositiveInt.Marshal(v.ChunkCount, bs[n:])
	n += varint.PositiveInt.Marshal(len(v.Failures), bs[n:])
	for _, f := range v.Failures {
		n += FailureMUS.Marshal(f, bs[n:])
	}
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	return
}

func (s reportMUS) Unmarshal(bs []byte) (v core.StructuredReport, n int, err error) {
	var n1, count int
	if v.ID, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if v.Source, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if count, n1, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if count > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	v.Entities = make([]core.Entity, count)
	for i := range v.Entities {
		if v.Entities[i], n1, err = EntityMUS.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
	}
	if v.Summary, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Disclaimer, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Notice, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ChunkCount, n1, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if count, n1, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if count > len(bs)-n {
		err = ErrTruncatedData
		return
	}
	v.Failures = make([]core.ChunkFailure, count)
	for i := range v.Failures {
		if v.Failures[i], n1, err = FailureMUS.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
	}
	var micros int64
	if micros, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	v.CreatedAt = time.UnixMicro(micros).UTC()
	return
}

func (s reportMUS) Size(v core.StructuredReport) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Source)
	size += varint.PositiveInt.Size(len(v.Entities))
	for _, e := range v.Entities {
		size += EntityMUS.Size(e)
	}
	size += ord.String.Size(v.Summary)
	size += ord.String.Size(v.Disclaimer)
	size += ord.String.Size(v.Notice)
	size += varint.PositiveInt.Size(v.ChunkCount)
	size += varint.PositiveInt.Size(len(v.Failures))
	for _, f := range v.Failures {
		size += FailureMUS.Size(f)
	}
	size += varint.Int64.Size(v.CreatedAt.UnixMicro())
	return
}

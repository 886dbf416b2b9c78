// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package morsel

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/skipledger/hashing"
	"github.com/luxfi/skipledger/ledgers"
	"github.com/luxfi/skipledger/salt"
	"github.com/luxfi/skipledger/sldg"
	"github.com/luxfi/skipledger/source"
)

// All integers are big-endian. Layout, per nugget blob:
//
//	MULTI_PATH  path_count[4] (row_count[4] (row_no[8] input[32] skips[32×k])*)*
//	SOURCE_PACK present[1] (polarity[1] col_count[2] col[4]* row_count[4] ROW*)?
//	ROW         row_no[8] cell_count[2] CELL*
//	CELL        tag[1] len[4] bytes salt[32 iff salted column and not hash-only]
//	NOTARIES    count[4] (chain_id[4] nr_count[4] (row_no[8] hash[32] block[8])*)*
//	REFS        count[4] (foreign_id[4] ref_count[4] (from_row[8] from_col[4] kind[1] tgt_row[8] tgt_col[4])*)*
//	ASSETS      count[4] (name_len[2] name len[4] bytes)*
//
// The skip-hash count per path row is skip_count(row_no), so row records
// are self-delimiting.

// byteReader walks a blob with strict bounds; every short read is a format
// error naming what was being read.
type byteReader struct {
	b   []byte
	off int
}

func (r *byteReader) take(n int, what string) ([]byte, error) {
	if len(r.b)-r.off < n {
		return nil, fmt.Errorf("%w: truncated %s", ledgers.ErrFormat, what)
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *byteReader) u8(what string) (byte, error) {
	b, err := r.take(1, what)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) u16(what string) (uint16, error) {
	b, err := r.take(2, what)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) u32(what string) (uint32, error) {
	b, err := r.take(4, what)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) u64(what string) (uint64, error) {
	b, err := r.take(8, what)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *byteReader) hash(what string) (hashing.Hash, error) {
	b, err := r.take(hashing.HashWidth, what)
	if err != nil {
		return hashing.Hash{}, err
	}
	var h hashing.Hash
	copy(h[:], b)
	return h, nil
}

func (r *byteReader) done() error {
	if r.off != len(r.b) {
		return fmt.Errorf("%w: %d trailing bytes", ledgers.ErrFormat, len(r.b)-r.off)
	}
	return nil
}

// ---- multi-path ----

func appendMultiPath(b []byte, mp *sldg.MultiPath) []byte {
	paths := mp.Paths()
	b = binary.BigEndian.AppendUint32(b, uint32(len(paths)))
	for _, p := range paths {
		rows := p.Rows()
		b = binary.BigEndian.AppendUint32(b, uint32(len(rows)))
		for _, r := range rows {
			b = binary.BigEndian.AppendUint64(b, r.No)
			b = append(b, r.Input[:]...)
			for _, s := range r.Skips {
				b = append(b, s[:]...)
			}
		}
	}
	return b
}

func decodeMultiPath(r *byteReader, algo hashing.Algo) (*sldg.MultiPath, error) {
	pathCount, err := r.u32("path count")
	if err != nil {
		return nil, err
	}
	if pathCount == 0 {
		return nil, fmt.Errorf("%w: empty multi-path", ledgers.ErrFormat)
	}
	var mp *sldg.MultiPath
	for pi := uint32(0); pi < pathCount; pi++ {
		rowCount, err := r.u32("path row count")
		if err != nil {
			return nil, err
		}
		if rowCount == 0 {
			return nil, fmt.Errorf("%w: empty path", ledgers.ErrFormat)
		}
		rows := make([]sldg.PathRow, rowCount)
		for ri := range rows {
			no, err := r.u64("path row number")
			if err != nil {
				return nil, err
			}
			if no == 0 {
				return nil, fmt.Errorf("%w: path row number 0", ledgers.ErrFormat)
			}
			row := sldg.PathRow{No: no, Skips: make([]hashing.Hash, sldg.SkipCount(no))}
			if row.Input, err = r.hash("path row input hash"); err != nil {
				return nil, err
			}
			for l := range row.Skips {
				if row.Skips[l], err = r.hash("path row skip hash"); err != nil {
					return nil, err
				}
			}
			rows[ri] = row
		}
		p, err := sldg.NewPath(algo, rows)
		if err != nil {
			return nil, err
		}
		if mp == nil {
			mp = sldg.NewMultiPath(p)
		} else if _, err := mp.AddPath(p); err != nil {
			return nil, err
		}
	}
	return mp, nil
}

// ---- source pack ----

func appendScheme(b []byte, s salt.Scheme) []byte {
	b = append(b, byte(s.Polarity()))
	cols := s.Columns()
	b = binary.BigEndian.AppendUint16(b, uint16(len(cols)))
	for _, c := range cols {
		b = binary.BigEndian.AppendUint32(b, c)
	}
	return b
}

func decodeScheme(r *byteReader) (salt.Scheme, error) {
	pol, err := r.u8("scheme polarity")
	if err != nil {
		return salt.Scheme{}, err
	}
	colCount, err := r.u16("scheme column count")
	if err != nil {
		return salt.Scheme{}, err
	}
	cols := make([]uint32, colCount)
	for i := range cols {
		if cols[i], err = r.u32("scheme column"); err != nil {
			return salt.Scheme{}, err
		}
	}
	return salt.NewScheme(salt.Polarity(pol), cols)
}

func appendCell(b []byte, c source.Cell, salted bool) []byte {
	payload := c.CanonicalBytes()
	if c.Redacted() {
		h := c.HashValue()
		payload = h[:]
	}
	b = append(b, byte(c.Type()))
	b = binary.BigEndian.AppendUint32(b, uint32(len(payload)))
	b = append(b, payload...)
	if salted && !c.Redacted() {
		s, _ := c.Salt()
		b = append(b, s...)
	}
	return b
}

func decodeCell(r *byteReader, salted bool) (source.Cell, error) {
	tag, err := r.u8("cell tag")
	if err != nil {
		return source.Cell{}, err
	}
	typ := source.CellType(tag)
	if !typ.Valid() {
		return source.Cell{}, fmt.Errorf("%w: cell tag %d", ledgers.ErrFormat, tag)
	}
	size, err := r.u32("cell length")
	if err != nil {
		return source.Cell{}, err
	}
	payload, err := r.take(int(size), "cell payload")
	if err != nil {
		return source.Cell{}, err
	}
	var cell source.Cell
	switch typ {
	case source.TypeNull:
		if size != 0 {
			return source.Cell{}, fmt.Errorf("%w: null cell with %d payload bytes", ledgers.ErrFormat, size)
		}
		cell = source.Null()
	case source.TypeLong, source.TypeDate, source.TypeDouble:
		if size != 8 {
			return source.Cell{}, fmt.Errorf("%w: %v cell with %d payload bytes", ledgers.ErrFormat, typ, size)
		}
		v := int64(binary.BigEndian.Uint64(payload))
		switch typ {
		case source.TypeLong:
			cell = source.Long(v)
		case source.TypeDate:
			cell = source.Date(v)
		default:
			cell = source.DoubleBits(uint64(v))
		}
	case source.TypeString:
		cell = source.String(string(payload))
	case source.TypeBytes:
		cell = source.Bytes(payload)
	case source.TypeHashOnly:
		if size != hashing.HashWidth {
			return source.Cell{}, fmt.Errorf("%w: hash cell with %d payload bytes", ledgers.ErrFormat, size)
		}
		var h hashing.Hash
		copy(h[:], payload)
		return source.HashOnly(h), nil
	}
	if !salted {
		return cell, nil
	}
	sb, err := r.take(salt.SeedWidth, "cell salt")
	if err != nil {
		return source.Cell{}, err
	}
	return cell.WithSalt([salt.SeedWidth]byte(sb))
}

func appendSourcePack(b []byte, p *SourcePack) []byte {
	if p == nil {
		return append(b, 0)
	}
	b = append(b, 1)
	b = appendScheme(b, p.Scheme())
	rows := p.Rows()
	b = binary.BigEndian.AppendUint32(b, uint32(len(rows)))
	for _, row := range rows {
		b = binary.BigEndian.AppendUint64(b, row.No())
		b = binary.BigEndian.AppendUint16(b, uint16(row.NumCells()))
		for col := 0; col < row.NumCells(); col++ {
			b = appendCell(b, row.Cell(col), p.Scheme().Salted(uint32(col)))
		}
	}
	return b
}

func decodeSourcePack(r *byteReader) (*SourcePack, error) {
	present, err := r.u8("source pack flag")
	if err != nil {
		return nil, err
	}
	switch present {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, fmt.Errorf("%w: source pack flag %d", ledgers.ErrFormat, present)
	}
	scheme, err := decodeScheme(r)
	if err != nil {
		return nil, err
	}
	rowCount, err := r.u32("source row count")
	if err != nil {
		return nil, err
	}
	rows := make([]source.Row, rowCount)
	for i := range rows {
		no, err := r.u64("source row number")
		if err != nil {
			return nil, err
		}
		cellCount, err := r.u16("source cell count")
		if err != nil {
			return nil, err
		}
		cells := make([]source.Cell, cellCount)
		for col := range cells {
			if cells[col], err = decodeCell(r, scheme.Salted(uint32(col))); err != nil {
				return nil, err
			}
		}
		if rows[i], err = source.NewRow(no, cells...); err != nil {
			return nil, err
		}
	}
	return NewSourcePack(scheme, rows), nil
}

// ---- notaries ----

func appendNotaries(b []byte, packs []NotaryPack) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(packs)))
	for _, p := range packs {
		b = binary.BigEndian.AppendUint32(b, p.ChainID)
		b = binary.BigEndian.AppendUint32(b, uint32(len(p.Rows)))
		for _, nr := range p.Rows {
			b = binary.BigEndian.AppendUint64(b, nr.RowNo)
			b = append(b, nr.RowHash[:]...)
			b = binary.BigEndian.AppendUint64(b, nr.WitnessBlock)
		}
	}
	return b
}

func decodeNotaries(r *byteReader) ([]NotaryPack, error) {
	count, err := r.u32("notary pack count")
	if err != nil {
		return nil, err
	}
	var packs []NotaryPack
	for i := uint32(0); i < count; i++ {
		p := NotaryPack{}
		if p.ChainID, err = r.u32("notary chain id"); err != nil {
			return nil, err
		}
		nrCount, err := r.u32("notarized row count")
		if err != nil {
			return nil, err
		}
		p.Rows = make([]NotarizedRow, nrCount)
		for j := range p.Rows {
			nr := &p.Rows[j]
			if nr.RowNo, err = r.u64("notarized row number"); err != nil {
				return nil, err
			}
			if nr.RowHash, err = r.hash("notarized row hash"); err != nil {
				return nil, err
			}
			if nr.WitnessBlock, err = r.u64("notary witness block"); err != nil {
				return nil, err
			}
		}
		packs = append(packs, p)
	}
	return packs, nil
}

// ---- foreign refs ----

func appendRefs(b []byte, packs []RefPack) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(packs)))
	for _, p := range packs {
		b = binary.BigEndian.AppendUint32(b, p.ForeignID)
		b = binary.BigEndian.AppendUint32(b, uint32(len(p.Refs)))
		for _, ref := range p.Refs {
			b = binary.BigEndian.AppendUint64(b, ref.FromRow)
			b = binary.BigEndian.AppendUint32(b, ref.FromCol)
			b = append(b, byte(ref.Kind))
			b = binary.BigEndian.AppendUint64(b, ref.TargetRow)
			b = binary.BigEndian.AppendUint32(b, uint32(ref.TargetCol))
		}
	}
	return b
}

func decodeRefs(r *byteReader) ([]RefPack, error) {
	count, err := r.u32("ref pack count")
	if err != nil {
		return nil, err
	}
	var packs []RefPack
	for i := uint32(0); i < count; i++ {
		p := RefPack{}
		if p.ForeignID, err = r.u32("ref foreign id"); err != nil {
			return nil, err
		}
		refCount, err := r.u32("ref count")
		if err != nil {
			return nil, err
		}
		p.Refs = make([]ForeignRef, refCount)
		for j := range p.Refs {
			ref := &p.Refs[j]
			if ref.FromRow, err = r.u64("ref from row"); err != nil {
				return nil, err
			}
			if ref.FromCol, err = r.u32("ref from column"); err != nil {
				return nil, err
			}
			kind, err := r.u8("ref kind")
			if err != nil {
				return nil, err
			}
			if kind > byte(RefBeacon) {
				return nil, fmt.Errorf("%w: ref kind %d", ledgers.ErrFormat, kind)
			}
			ref.Kind = RefKind(kind)
			if ref.TargetRow, err = r.u64("ref target row"); err != nil {
				return nil, err
			}
			tc, err := r.u32("ref target column")
			if err != nil {
				return nil, err
			}
			ref.TargetCol = int32(tc)
			if ref.TargetCol < NoTargetCol {
				return nil, fmt.Errorf("%w: ref target column %d", ledgers.ErrFormat, ref.TargetCol)
			}
		}
		packs = append(packs, p)
	}
	return packs, nil
}

// ---- assets ----

func appendAssets(b []byte, assets []Asset) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(assets)))
	for _, a := range assets {
		b = binary.BigEndian.AppendUint16(b, uint16(len(a.Name)))
		b = append(b, a.Name...)
		b = binary.BigEndian.AppendUint32(b, uint32(len(a.Data)))
		b = append(b, a.Data...)
	}
	return b
}

func decodeAssets(r *byteReader) ([]Asset, error) {
	count, err := r.u32("asset count")
	if err != nil {
		return nil, err
	}
	var assets []Asset
	for i := uint32(0); i < count; i++ {
		nameLen, err := r.u16("asset name length")
		if err != nil {
			return nil, err
		}
		name, err := r.take(int(nameLen), "asset name")
		if err != nil {
			return nil, err
		}
		size, err := r.u32("asset length")
		if err != nil {
			return nil, err
		}
		data, err := r.take(int(size), "asset data")
		if err != nil {
			return nil, err
		}
		assets = append(assets, Asset{Name: string(name), Data: append([]byte(nil), data...)})
	}
	return assets, nil
}

// ---- nugget blob ----

func encodeNugget(n *Nugget) []byte {
	var b []byte
	b = appendMultiPath(b, n.mp)
	b = appendSourcePack(b, n.sources)
	b = appendNotaries(b, n.notaries)
	b = appendRefs(b, n.refs)
	b = appendAssets(b, n.assets)
	return b
}

func decodeNugget(id ledgers.ID, blob []byte) (*Nugget, error) {
	algo, err := idAlgo(id)
	if err != nil {
		return nil, err
	}
	r := &byteReader{b: blob}
	n := &Nugget{id: id}
	if n.mp, err = decodeMultiPath(r, algo); err != nil {
		return nil, err
	}
	if n.sources, err = decodeSourcePack(r); err != nil {
		return nil, err
	}
	if n.notaries, err = decodeNotaries(r); err != nil {
		return nil, err
	}
	if n.refs, err = decodeRefs(r); err != nil {
		return nil, err
	}
	if n.assets, err = decodeAssets(r); err != nil {
		return nil, err
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return n, nil
}

package dr

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Footprint is the canonical hash of a normalized Proposal's content, used
// to group distinct members' submissions that "propose the same thing"
// (§4.6: "groups the remainder by a canonical footprint (hash of normalized
// proposal content)").
type Footprint [32]byte

// footprint derives p's canonical footprint the way encodeResource derives
// a fixed-width resource key in the request package: concatenate every
// field in a fixed order, then hash.
func footprint(p Proposal) Footprint {
	buf := make([]byte, 0, 128)
	buf = append(buf, []byte(p.Kind)...)
	buf = append(buf, 0)

	switch p.Kind {
	case ProposalInstallCode:
		buf = appendLenPrefixed(buf, p.Module.InlineBytes)
		if p.Module.Deferred != nil {
			buf = append(buf, 0x01)
			buf = appendLenPrefixed(buf, []byte(p.Module.Deferred.StoreLocator))
			buf = appendLenPrefixed(buf, []byte(p.Module.Deferred.Hash))
		} else {
			buf = append(buf, 0x00)
		}
		for _, chunk := range p.ExtraChunks {
			buf = appendLenPrefixed(buf, []byte(chunk))
		}
		buf = appendLenPrefixed(buf, p.Arg)
		buf = append(buf, []byte(p.Mode)...)

	case ProposalSnapshot:
		buf = appendLenPrefixed(buf, []byte(p.ReplaceSnapshot))
		if p.Force {
			buf = append(buf, 0x01)
		} else {
			buf = append(buf, 0x00)
		}

	case ProposalRestore:
		buf = appendLenPrefixed(buf, []byte(p.SnapshotID))
	}

	return Footprint(ethcrypto.Keccak256(buf))
}

func appendLenPrefixed(buf, field []byte) []byte {
	lenBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBytes, uint32(len(field)))
	buf = append(buf, lenBytes...)
	return append(buf, field...)
}

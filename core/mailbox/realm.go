package mailbox

import (
	"encoding/binary"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// Realm partitions address spaces. A manager only delivers frames tagged
// with its own realm and only sends to addresses of its own realm.
type Realm uint64

// DefaultRealm is used by managers that do not name a realm.
var DefaultRealm = NewRealm("default")

// NewRealm derives the realm tag for name. Equal names give equal tags on
// every node.
func NewRealm(name string) Realm {
	// 8-byte digest => uint64 tag
	h, _ := blake2b.New(8, nil)
	h.Write([]byte("mbox.realm"))
	h.Write([]byte{0})
	h.Write([]byte(name))
	return Realm(binary.BigEndian.Uint64(h.Sum(nil)))
}

func (r Realm) String() string {
	return strconv.FormatUint(uint64(r), 16)
}

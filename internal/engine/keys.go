package engine

import "github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"

// Key layout:
//
//	p:state       protocol state
//	m:slot        last committed slot
//	w:<id>        worker record
//	s:<id>        soulkey record
//	b:<id>        liquid token balance
var (
	stateKey = []byte("p:state")
	slotKey  = []byte("m:slot")

	workerPrefix  = []byte("w:")
	soulKeyPrefix = []byte("s:")
	balancePrefix = []byte("b:")
)

func idKey(prefix []byte, id protocol.Identity) []byte {
	k := make([]byte, 0, len(prefix)+len(id))
	k = append(k, prefix...)
	return append(k, id[:]...)
}

func workerKey(id protocol.Identity) []byte  { return idKey(workerPrefix, id) }
func soulKeyKey(id protocol.Identity) []byte { return idKey(soulKeyPrefix, id) }
func balanceKey(id protocol.Identity) []byte { return idKey(balancePrefix, id) }

package idgen

import (
	"hash/fnv"
	"os"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

// NewWorker builds a sonyflake worker. When no private IPv4 address is available the machine id falls back to a
// hash of the host name.
func NewWorker() *sonyflake.Sonyflake {
	w := sonyflake.NewSonyflake(sonyflake.Settings{})
	if w != nil {
		return w
	}
	return sonyflake.NewSonyflake(sonyflake.Settings{MachineID: hostMachineID})
}

func NextID(worker *sonyflake.Sonyflake) types.ID {
	id, err := worker.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}

func hostMachineID() (uint16, error) {
	name, err := os.Hostname()
	if err != nil {
		return 0, err
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return uint16(h.Sum32()), nil
}

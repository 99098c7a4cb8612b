// Profiling:
// go build ./profile/spawn
// go tool pprof -http=":8000" -nodefraction=0.001 ./spawn mem.pprof

package main

import (
	"fmt"

	"github.com/edwinsyarief/prototable"
	"github.com/pkg/profile"
)

type stats struct {
	HP    int64 `json:"hp"`
	Armor int64 `json:"armor"`
}

func main() {
	rounds := 50
	iters := 100
	instances := 10000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, instances)
	p.Stop()
}

func run(rounds, iters, numInstances int) {
	s := prototable.NewSchema()
	numField := prototable.DenseField[int64](s, "num")
	statsField := prototable.OverlayField[stats](s, "stats")
	nameField := prototable.OverlayField[string](s, "name")

	proto := prototable.NewTable(s)
	for i := range 16 {
		_, err := proto.LoadPrototypeJSON(fmt.Appendf(nil,
			`{"num": %d, "name": "proto-%d", "stats": {"hp": %d, "armor": 3}}`, i, i, 100+i))
		if err != nil {
			panic(err)
		}
	}

	for range rounds {
		inst := prototable.NewInstanceTable(proto)
		for range iters {
			for j := range numInstances {
				inst.Spawn(proto, j%proto.Len())
			}
			// Override a tenth of the instances to exercise copy-on-write.
			for j := 0; j < numInstances; j += 10 {
				st := prototable.GetMut[stats](inst, statsField, j)
				st.HP -= 5
				prototable.Set(inst, nameField, j, "damaged")
			}
			var sum int64
			for j := range inst.Len() {
				sum += prototable.Get[int64](inst, numField, j)
				sum += prototable.Get[stats](inst, statsField, j).HP
			}
			_ = sum
			for inst.Len() > 0 {
				inst.Despawn(0)
			}
		}
	}
}

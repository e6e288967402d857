package strategy

import (
	"math/rand"

	"github.com/angeloszaimis/service-mesh/internal/instance"
)

type randomStrategy struct{}

func (r *randomStrategy) Select(instances []*instance.Instance) *instance.Instance {
	if len(instances) == 0 {
		return nil
	}

	index := rand.Intn(len(instances))
	return instances[index]
}

func NewRandomStrategy() Strategy {
	return &randomStrategy{}
}

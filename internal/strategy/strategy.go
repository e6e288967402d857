package strategy

import (
	"github.com/angeloszaimis/service-mesh/internal/instance"
)

type Strategy interface {
	Select(instances []*instance.Instance) *instance.Instance
}

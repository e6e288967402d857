package strategy_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/service-mesh/internal/instance"
	"github.com/angeloszaimis/service-mesh/internal/strategy"
)

func TestStrategy(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Strategy Suite")
}

func makeInstances(urls ...string) []*instance.Instance {
	instances := make([]*instance.Instance, 0, len(urls))
	for _, u := range urls {
		instances = append(instances, instance.New("svc", u, nil))
	}
	return instances
}

var _ = Describe("RoundRobin", func() {
	var (
		strat     strategy.Strategy
		instances []*instance.Instance
	)

	BeforeEach(func() {
		strat = strategy.NewRoundRobinStrategy()
		instances = makeInstances(
			"http://localhost:8081",
			"http://localhost:8082",
			"http://localhost:8083",
		)
	})

	Context("with multiple instances", func() {
		It("should cycle through instances in order", func() {
			Expect(strat.Select(instances)).To(Equal(instances[0]))
			Expect(strat.Select(instances)).To(Equal(instances[1]))
			Expect(strat.Select(instances)).To(Equal(instances[2]))
			Expect(strat.Select(instances)).To(Equal(instances[0]))
		})

		It("should distribute load evenly", func() {
			counts := make(map[string]int)
			for i := 0; i < 300; i++ {
				selected := strat.Select(instances)
				counts[selected.URL()]++
			}
			Expect(counts["http://localhost:8081"]).To(Equal(100))
			Expect(counts["http://localhost:8082"]).To(Equal(100))
			Expect(counts["http://localhost:8083"]).To(Equal(100))
		})

		It("should keep rotating after the candidate list shrinks", func() {
			strat.Select(instances)
			strat.Select(instances)

			remaining := instances[:2]
			selected := strat.Select(remaining)
			Expect(remaining).To(ContainElement(selected))
		})
	})

	Context("with an empty instance list", func() {
		It("should return nil", func() {
			Expect(strat.Select([]*instance.Instance{})).To(BeNil())
		})
	})

	Context("with a single instance", func() {
		It("should always select it", func() {
			single := makeInstances("http://localhost:8081")
			Expect(strat.Select(single)).To(Equal(single[0]))
			Expect(strat.Select(single)).To(Equal(single[0]))
		})
	})
})

var _ = Describe("Random", func() {
	var (
		strat     strategy.Strategy
		instances []*instance.Instance
	)

	BeforeEach(func() {
		strat = strategy.NewRandomStrategy()
		instances = makeInstances(
			"http://localhost:8081",
			"http://localhost:8082",
			"http://localhost:8083",
		)
	})

	It("should select an instance", func() {
		selected := strat.Select(instances)
		Expect(selected).NotTo(BeNil())
		Expect(instances).To(ContainElement(selected))
	})

	It("should distribute across instances over multiple calls", func() {
		seen := make(map[*instance.Instance]bool)
		for i := 0; i < 300; i++ {
			seen[strat.Select(instances)] = true
		}
		Expect(seen).To(HaveLen(3))
	})

	It("should return nil for an empty instance list", func() {
		Expect(strat.Select([]*instance.Instance{})).To(BeNil())
	})
})

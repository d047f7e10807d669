package challenge

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
	"gopkg.in/yaml.v3"

	errs "github.com/mlcocdav/ctfbench/pkg/errors"
)

// ComposeFile is the canonical compose definition name inside a bundle.
const ComposeFile = "compose.yaml"

// AttackerService is the compose service name the agent execs into.
const AttackerService = "attacker"

// VictimService is the compose service name of the exploited workload.
const VictimService = "victim"

// Compose is the subset of the Docker Compose file format the benchmark
// topologies use. It round-trips through gopkg.in/yaml.v3.
type Compose struct {
	Services map[string]Service  `yaml:"services"`
	Networks map[string]*Network `yaml:"networks,omitempty"`
}

type Service struct {
	Image       string            `yaml:"image"`
	Command     []string          `yaml:"command,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Networks    []string          `yaml:"networks,omitempty"`
	DependsOn   []string          `yaml:"depends_on,omitempty"`
	Init        *bool             `yaml:"init,omitempty"`
	Expose      []string          `yaml:"expose,omitempty"`
}

// Network carries no options today, but the key must marshal to an empty
// mapping ("ctfnet: {}") rather than null for compose compatibility.
type Network struct{}

const networkName = "ctfnet"

// Topology renders the canonical compose definition of a challenge: an
// attacker container idling on the benchmark network, plus the victim
// workload when the challenge has one.
func Topology(c Challenge) *Compose {
	t := true
	cmp := &Compose{
		Services: map[string]Service{
			AttackerService: {
				Image:    c.Attacker,
				Command:  []string{"sleep", "infinity"},
				Init:     &t,
				Networks: []string{networkName},
			},
		},
		Networks: map[string]*Network{
			networkName: {},
		},
	}
	if !c.Victimless() {
		expose := make([]string, 0, len(c.VictimPorts))
		for _, p := range c.VictimPorts {
			expose = append(expose, strings.TrimSuffix(p, "/tcp"))
		}
		cmp.Services[VictimService] = Service{
			Image:    c.Victim,
			Networks: []string{networkName},
			Expose:   expose,
		}
	}
	return cmp
}

// Marshal renders the compose definition as YAML.
func (cmp *Compose) Marshal() ([]byte, error) {
	return yaml.Marshal(cmp)
}

// ParseCompose decodes and validates a compose definition: it must declare an
// attacker service, and every image must be a valid named reference.
func ParseCompose(b []byte) (*Compose, error) {
	cmp := &Compose{}
	if err := yaml.Unmarshal(b, cmp); err != nil {
		return nil, &errs.ErrBundle{Sub: err}
	}
	if err := cmp.validate(); err != nil {
		return nil, err
	}
	return cmp, nil
}

func (cmp *Compose) validate() error {
	if _, ok := cmp.Services[AttackerService]; !ok {
		return &errs.ErrValidationFailed{
			Reason: "compose definition has no " + AttackerService + " service",
		}
	}
	for name, svc := range cmp.Services {
		if svc.Image == "" {
			return &errs.ErrValidationFailed{
				Reason: "service " + name + " has no image",
			}
		}
		rr, err := reference.Parse(svc.Image)
		if err != nil {
			return &errs.ErrValidationFailed{
				Reason: "service " + name + " image " + svc.Image + ": " + err.Error(),
			}
		}
		if _, ok := rr.(reference.Named); !ok {
			return &errs.ErrValidationFailed{
				Reason: "service " + name + " image " + svc.Image + " is not a named reference",
			}
		}
	}
	return nil
}

// InjectFlags sets the FLAG_1..FLAG_N environment variables on the service
// holding the flags: the victim when there is one, the attacker otherwise.
// This is how locally started topologies receive their per-epoch secrets,
// mirroring what private image builds bake in place of the placeholders.
func (cmp *Compose) InjectFlags(flags []string) {
	name := VictimService
	if _, ok := cmp.Services[name]; !ok {
		name = AttackerService
	}
	svc := cmp.Services[name]
	if svc.Environment == nil {
		svc.Environment = map[string]string{}
	}
	for i, flag := range flags {
		svc.Environment[fmt.Sprintf("FLAG_%d", i+1)] = flag
	}
	cmp.Services[name] = svc
}

// Images returns the deduplicated image references of the topology.
func (cmp *Compose) Images() []string {
	seen := map[string]struct{}{}
	imgs := make([]string, 0, len(cmp.Services))
	for _, svc := range cmp.Services {
		if _, ok := seen[svc.Image]; ok {
			continue
		}
		seen[svc.Image] = struct{}{}
		imgs = append(imgs, svc.Image)
	}
	return imgs
}

package devops

import (
	"context"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// AgencyEntry is one tenant: its schema name and how its devices reach it.
type AgencyEntry struct {
	Name     string `yaml:"name"`
	Schema   string `yaml:"schema"`
	Hostname string `yaml:"hostname"`
}

var (
	once     sync.Once
	agencies []AgencyEntry
	loadErr  error
)

func parseAgencies(raw []byte) ([]AgencyEntry, error) {
	var parsed []AgencyEntry
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	for i, a := range parsed {
		if a.Schema == "" {
			return nil, fmt.Errorf("agency entry %d (%q) has no schema", i, a.Name)
		}
	}
	return parsed, nil
}

// LoadAgencies reads the tenant roster from SSM. Loaded once per process; the
// submission sweep iterates it to reach every agency schema.
func LoadAgencies(ctx context.Context) ([]AgencyEntry, error) {
	once.Do(func() {
		paramName := "agencies"

		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			loadErr = fmt.Errorf("load aws config: %w", err)
			return
		}

		client := ssm.NewFromConfig(cfg)

		out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(paramName),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			loadErr = fmt.Errorf("get parameter: %w", err)
			return
		}

		agencies, loadErr = parseAgencies([]byte(*out.Parameter.Value))
	})

	return agencies, loadErr
}

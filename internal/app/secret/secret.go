package secret

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ErrEmptySecret is returned when the secret store holds no value for a name.
var ErrEmptySecret = errors.New("secret is empty")

// Provider resolves named credentials.
type Provider interface {
	Secret(ctx context.Context, name string) (string, error)
}

// SSMAPI is the subset of the SSM client used to read parameters.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type ssmProvider struct {
	api SSMAPI
}

// NewSSMProvider reads SecureString parameters from SSM Parameter Store.
func NewSSMProvider(api SSMAPI) Provider {
	return &ssmProvider{api: api}
}

func (p *ssmProvider) Secret(ctx context.Context, name string) (string, error) {
	out, err := p.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("parameter %s: %w", name, ErrEmptySecret)
	}
	return aws.ToString(out.Parameter.Value), nil
}

type staticProvider struct {
	value string
}

// NewStaticProvider returns value for every name; used for local runs where
// the key comes from configuration.
func NewStaticProvider(value string) Provider {
	return &staticProvider{value: value}
}

func (p *staticProvider) Secret(_ context.Context, name string) (string, error) {
	if p.value == "" {
		return "", fmt.Errorf("secret %s: %w", name, ErrEmptySecret)
	}
	return p.value, nil
}

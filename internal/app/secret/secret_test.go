package secret

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type mockSSM struct {
	getParameterFn func(ctx context.Context, params *ssm.GetParameterInput) (*ssm.GetParameterOutput, error)
}

func (m *mockSSM) GetParameter(ctx context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return m.getParameterFn(ctx, params)
}

func TestSSMProvider_Secret(t *testing.T) {
	api := &mockSSM{
		getParameterFn: func(ctx context.Context, params *ssm.GetParameterInput) (*ssm.GetParameterOutput, error) {
			if aws.ToString(params.Name) != "/cic/perplexity-api-key" {
				t.Fatalf("unexpected parameter name %q", aws.ToString(params.Name))
			}
			if !aws.ToBool(params.WithDecryption) {
				t.Fatal("expected decryption to be requested")
			}
			return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String("pplx-123")}}, nil
		},
	}

	got, err := NewSSMProvider(api).Secret(context.Background(), "/cic/perplexity-api-key")
	if err != nil {
		t.Fatalf("Secret returned error: %v", err)
	}
	if got != "pplx-123" {
		t.Fatalf("expected pplx-123, got %q", got)
	}
}

func TestSSMProvider_Errors(t *testing.T) {
	boom := errors.New("access denied")

	tests := []struct {
		name    string
		out     *ssm.GetParameterOutput
		err     error
		wantErr error
	}{
		{name: "api error", err: boom, wantErr: boom},
		{name: "missing parameter", out: &ssm.GetParameterOutput{}, wantErr: ErrEmptySecret},
		{name: "empty value", out: &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String("")}}, wantErr: ErrEmptySecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockSSM{
				getParameterFn: func(context.Context, *ssm.GetParameterInput) (*ssm.GetParameterOutput, error) {
					return tt.out, tt.err
				},
			}
			if _, err := NewSSMProvider(api).Secret(context.Background(), "/key"); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestStaticProvider(t *testing.T) {
	got, err := NewStaticProvider("local-key").Secret(context.Background(), "anything")
	if err != nil || got != "local-key" {
		t.Fatalf("expected local-key, got %q (%v)", got, err)
	}

	if _, err := NewStaticProvider("").Secret(context.Background(), "anything"); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}

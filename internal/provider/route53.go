package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/rotatord/rotatord/internal/faults"
	"github.com/rotatord/rotatord/internal/model"
)

func init() {
	Register(model.ProviderRoute53, func(account model.Account, token string) (Client, error) {
		return NewRoute53(context.Background(), account.Region, token)
	})
}

// Route53 implements Client against AWS Route53, demonstrating that the
// engine's abstraction holds for a backend with a completely different
// auth model (SDK-managed signing, not a bearer header) and no "proxied"
// concept. Resolved token is treated as "accessKeyID:secretAccessKey".
type Route53 struct {
	client *route53.Client
}

// NewRoute53 constructs a Route53-backed Client. The resolved secret is
// expected in the form "accessKeyID:secretAccessKey"; this keeps Account's
// single Token field uniform across provider kinds rather than growing
// provider-specific config fields.
func NewRoute53(ctx context.Context, region, resolvedSecret string) (*Route53, error) {
	accessKeyID, secretAccessKey, ok := splitSecret(resolvedSecret)
	if !ok {
		return nil, fmt.Errorf("route53: token must be \"accessKeyID:secretAccessKey\"")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("route53: load aws config: %w", err)
	}

	return &Route53{client: route53.NewFromConfig(cfg)}, nil
}

func splitSecret(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func (r *Route53) ListZones(ctx context.Context) ([]model.Zone, error) {
	var zones []model.Zone
	var marker *string
	for {
		out, err := r.client.ListHostedZones(ctx, &route53.ListHostedZonesInput{Marker: marker})
		if err != nil {
			return nil, classifyAWSErr("list_zones", err)
		}
		for _, z := range out.HostedZones {
			zones = append(zones, model.Zone{ID: aws.ToString(z.Id), Name: aws.ToString(z.Name)})
		}
		if !out.IsTruncated {
			break
		}
		marker = out.NextMarker
	}
	return zones, nil
}

func (r *Route53) ListRecords(ctx context.Context, zoneID string, typeFilter model.RecordType) ([]model.Record, error) {
	var out []model.Record
	var nextName *string
	var nextType types.RRType

	for {
		input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(zoneID)}
		if nextName != nil {
			input.StartRecordName = nextName
			input.StartRecordType = nextType
		}

		page, err := r.client.ListResourceRecordSets(ctx, input)
		if err != nil {
			return nil, classifyAWSErr("list_records", err)
		}

		for _, rrs := range page.ResourceRecordSets {
			if typeFilter != "" && string(rrs.Type) != string(typeFilter) {
				continue
			}
			for _, rr := range rrs.ResourceRecords {
				out = append(out, model.Record{
					ID:     recordID(zoneID, aws.ToString(rrs.Name), string(rrs.Type)),
					ZoneID: zoneID,
					Name:   aws.ToString(rrs.Name),
					Type:   model.RecordType(rrs.Type),
					Value:  aws.ToString(rr.Value),
					TTL:    aws.ToInt64(rrs.TTL),
				})
			}
		}

		if !page.IsTruncated {
			break
		}
		nextName = page.NextRecordName
		nextType = page.NextRecordType
	}
	return out, nil
}

// recordID synthesizes a stable opaque id for Route53, which identifies
// record sets by (name, type) rather than issuing its own record id.
func recordID(zoneID, name, rrType string) string {
	return zoneID + "/" + name + "/" + rrType
}

func (r *Route53) splitRecordID(recordID string) (name, rrType string, ok bool) {
	parts := make([]string, 0, 3)
	start := 0
	for i := 0; i < len(recordID); i++ {
		if recordID[i] == '/' {
			parts = append(parts, recordID[start:i])
			start = i + 1
		}
	}
	parts = append(parts, recordID[start:])
	if len(parts) != 3 {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func (r *Route53) GetRecord(ctx context.Context, zoneID, recID string) (model.Record, error) {
	name, rrType, ok := r.splitRecordID(recID)
	if !ok {
		return model.Record{}, faults.New(faults.KindRecordScope, "get_record", fmt.Errorf("malformed record id %q", recID)).WithRecord(zoneID, recID)
	}

	page, err := r.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(name),
		StartRecordType: types.RRType(rrType),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return model.Record{}, withRecord(classifyAWSErr("get_record", err), zoneID, recID)
	}
	for _, rrs := range page.ResourceRecordSets {
		if aws.ToString(rrs.Name) != name || string(rrs.Type) != rrType {
			continue
		}
		if len(rrs.ResourceRecords) == 0 {
			break
		}
		return model.Record{
			ID:     recID,
			ZoneID: zoneID,
			Name:   name,
			Type:   model.RecordType(rrType),
			Value:  aws.ToString(rrs.ResourceRecords[0].Value),
			TTL:    aws.ToInt64(rrs.TTL),
		}, nil
	}
	return model.Record{}, faults.New(faults.KindRecordScope, "get_record", fmt.Errorf("record not found")).WithRecord(zoneID, recID)
}

func (r *Route53) UpdateRecord(ctx context.Context, zoneID, recID, newValue string) (model.Record, error) {
	current, err := r.GetRecord(ctx, zoneID, recID)
	if err != nil {
		return model.Record{}, err
	}

	_, err = r.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String("rotated by rotatord"),
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(current.Name),
						Type: types.RRType(current.Type),
						TTL:  aws.Int64(current.TTL),
						ResourceRecords: []types.ResourceRecord{
							{Value: aws.String(newValue)},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return model.Record{}, withRecord(classifyAWSErr("update_record", err), zoneID, recID)
	}

	current.Value = newValue
	return current, nil
}

func (r *Route53) VerifyToken(ctx context.Context) (bool, []string, error) {
	_, err := r.client.ListHostedZones(ctx, &route53.ListHostedZonesInput{MaxItems: aws.Int32(1)})
	if err != nil {
		var fe *faults.Error
		if ce := classifyAWSErr("verify_token", err); errors.As(ce, &fe) && fe.Kind == faults.KindAuth {
			return false, nil, nil
		}
		return false, nil, err
	}
	return true, nil, nil
}

func withRecord(err error, zoneID, recID string) error {
	var fe *faults.Error
	if errors.As(err, &fe) {
		return fe.WithRecord(zoneID, recID)
	}
	return err
}

// classifyAWSErr maps an AWS SDK error onto the four fault kinds. Route53
// surfaces auth failures and not-found as distinct smithy response errors;
// everything else with a 5xx or no response at all is transient.
func classifyAWSErr(op string, err error) error {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		switch {
		case re.HTTPStatusCode() == 401 || re.HTTPStatusCode() == 403:
			return faults.New(faults.KindAuth, op, err)
		case re.HTTPStatusCode() == 404:
			return faults.New(faults.KindRecordScope, op, err)
		case re.HTTPStatusCode() >= 500:
			return faults.New(faults.KindTransient, op, err)
		default:
			return faults.New(faults.KindRecordScope, op, err)
		}
	}
	return faults.New(faults.KindTransient, op, err)
}

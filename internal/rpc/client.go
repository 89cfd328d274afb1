package rpc

import (
	"context"
	"time"

	"github.com/signalsfoundry/planet-positions/model"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a remote EphemerisService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ListPlanets returns the remote catalog.
func (c *Client) ListPlanets(ctx context.Context, opts ...grpc.CallOption) ([]model.PlanetDefinition, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListPlanetsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return CatalogFromStruct(out), nil
}

// GetPositions evaluates planet ("all" or a name) at date ("now" or YYYY-MM-DD).
func (c *Client) GetPositions(ctx context.Context, planet, date string, opts ...grpc.CallOption) ([]model.Observation, error) {
	req, err := structpb.NewStruct(map[string]any{
		fieldPlanet: planet,
		fieldDate:   date,
	})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetPositionsMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return ObservationsFromStruct(out)
}

// Track evaluates planet at count dates starting at start, step apart.
func (c *Client) Track(ctx context.Context, planet, start string, step time.Duration, count int, opts ...grpc.CallOption) ([]model.Observation, error) {
	req, err := structpb.NewStruct(map[string]any{
		fieldPlanet:   planet,
		fieldStart:    start,
		fieldStepDays: step.Hours() / 24,
		fieldCount:    float64(count),
	})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TrackMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return ObservationsFromStruct(out)
}

// GetSeparation measures the geometry between two planets at date.
func (c *Client) GetSeparation(ctx context.Context, from, to, date string, opts ...grpc.CallOption) (model.Separation, error) {
	req, err := structpb.NewStruct(map[string]any{
		fieldFrom: from,
		fieldTo:   to,
		fieldDate: date,
	})
	if err != nil {
		return model.Separation{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SeparationMethod, req, out, opts...); err != nil {
		return model.Separation{}, err
	}
	return SeparationFromStruct(out)
}

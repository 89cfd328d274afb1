package rpc

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/planet-positions/core"
	"github.com/signalsfoundry/planet-positions/internal/dateparse"
	"github.com/signalsfoundry/planet-positions/internal/logging"
	"github.com/signalsfoundry/planet-positions/kb"
	"github.com/signalsfoundry/planet-positions/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "planets.v1.EphemerisService"

	ListPlanetsMethod  = "/" + ServiceName + "/ListPlanets"
	GetPositionsMethod = "/" + ServiceName + "/GetPositions"
	TrackMethod        = "/" + ServiceName + "/Track"
	SeparationMethod   = "/" + ServiceName + "/GetSeparation"

	// MaxTrackRows bounds a single Track response.
	MaxTrackRows = 100000

	// maxStepDays keeps the step within time.Duration.
	maxStepDays = 100000
)

// EphemerisServer is the server API of the ephemeris service.
type EphemerisServer interface {
	ListPlanets(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetPositions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Track(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSeparation(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// PlanetLister lists the catalog.
type PlanetLister interface {
	ListPlanets() []model.PlanetDefinition
}

// DateFailureRecorder counts rejected date selectors.
type DateFailureRecorder interface {
	RecordDateParseFailure()
}

// EphemerisService implements EphemerisServer over a core.Ephemeris.
type EphemerisService struct {
	eph     *core.Ephemeris
	catalog PlanetLister
	clock   func() time.Time
	dates   DateFailureRecorder
	log     logging.Logger
}

// ServiceOption customises an EphemerisService.
type ServiceOption func(*EphemerisService)

// WithClock overrides the source of "now".
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *EphemerisService) { s.clock = clock }
}

// WithDateFailureRecorder attaches a counter for rejected dates.
func WithDateFailureRecorder(r DateFailureRecorder) ServiceOption {
	return func(s *EphemerisService) { s.dates = r }
}

// NewEphemerisService wires the service to an evaluator and its catalog.
func NewEphemerisService(eph *core.Ephemeris, catalog PlanetLister, log logging.Logger, opts ...ServiceOption) *EphemerisService {
	if log == nil {
		log = logging.Noop()
	}
	s := &EphemerisService{
		eph:     eph,
		catalog: catalog,
		clock:   time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the service to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv EphemerisServer) {
	s.RegisterService(&serviceDesc, srv)
}

func (s *EphemerisService) ensureReady() error {
	if s == nil || s.eph == nil || s.catalog == nil {
		return status.Error(codes.FailedPrecondition, "ephemeris is not configured")
	}
	return nil
}

func (s *EphemerisService) ListPlanets(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	resp, err := catalogToStruct(s.catalog.ListPlanets())
	if err != nil {
		return nil, ToStatusError(err)
	}
	return resp, nil
}

// GetPositions evaluates {"planet": name|"all", "date": "YYYY-MM-DD"|"now"};
// both fields default to "all" and "now".
func (s *EphemerisService) GetPositions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx, s.log)

	selector, err := stringField(req, fieldPlanet, kb.SelectAll)
	if err != nil {
		return nil, ToStatusError(err)
	}
	date, err := s.parseDate(req, fieldDate)
	if err != nil {
		log.Warn(ctx, "rejected date", logging.Err(err))
		return nil, ToStatusError(err)
	}

	obs, err := s.eph.Compute(ctx, selector, date)
	if err != nil {
		log.Warn(ctx, "position request failed", logging.String("planet", selector), logging.Err(err))
		return nil, ToStatusError(err)
	}

	resp, err := observationsToStruct(s.eph.Formula().String(), obs)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return resp, nil
}

// Track evaluates {"planet", "start", "step_days", "count"} and returns the
// observations grouped by date.
func (s *EphemerisService) Track(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx, s.log)

	selector, err := stringField(req, fieldPlanet, kb.SelectAll)
	if err != nil {
		return nil, ToStatusError(err)
	}
	start, err := s.parseDate(req, fieldStart)
	if err != nil {
		log.Warn(ctx, "rejected date", logging.Err(err))
		return nil, ToStatusError(err)
	}
	stepDays, err := numberField(req, fieldStepDays, 1)
	if err != nil {
		return nil, ToStatusError(err)
	}
	count, err := numberField(req, fieldCount, 1)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if stepDays <= 0 || math.IsNaN(stepDays) || stepDays > maxStepDays {
		return nil, ToStatusError(fmt.Errorf("%w: step_days must be in (0, %v], got %v", ErrInvalidRequest, maxStepDays, stepDays))
	}
	if count < 1 || count > MaxTrackRows || count != math.Trunc(count) {
		return nil, ToStatusError(fmt.Errorf("%w: count must be an integer in [1, %d], got %v", ErrInvalidRequest, MaxTrackRows, count))
	}

	step := time.Duration(stepDays * float64(24*time.Hour))
	if step <= 0 {
		return nil, ToStatusError(fmt.Errorf("%w: step_days %v is shorter than a nanosecond", ErrInvalidRequest, stepDays))
	}
	// Reject before computing: "all" multiplies the rows by the catalog size.
	perStep := 1
	if selector == kb.SelectAll {
		perStep = len(s.catalog.ListPlanets())
	}
	if rows := perStep * int(count); rows > MaxTrackRows {
		return nil, ToStatusError(fmt.Errorf("%w: %d rows exceeds the limit of %d", ErrInvalidRequest, rows, MaxTrackRows))
	}

	obs, err := s.eph.Track(ctx, selector, start, step, int(count))
	if err != nil {
		log.Warn(ctx, "track request failed", logging.String("planet", selector), logging.Err(err))
		return nil, ToStatusError(err)
	}

	resp, err := observationsToStruct(s.eph.Formula().String(), obs)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return resp, nil
}

// GetSeparation evaluates {"from", "to", "date"} for two single planets.
func (s *EphemerisService) GetSeparation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	log := logging.FromContext(ctx, s.log)

	from, err := stringField(req, fieldFrom, "")
	if err != nil {
		return nil, ToStatusError(err)
	}
	to, err := stringField(req, fieldTo, "")
	if err != nil {
		return nil, ToStatusError(err)
	}
	if from == "" || to == "" {
		return nil, ToStatusError(fmt.Errorf("%w: from and to are required", ErrInvalidRequest))
	}
	date, err := s.parseDate(req, fieldDate)
	if err != nil {
		log.Warn(ctx, "rejected date", logging.Err(err))
		return nil, ToStatusError(err)
	}

	sep, err := s.eph.Separation(ctx, from, to, date)
	if err != nil {
		log.Warn(ctx, "separation request failed",
			logging.String("from", from),
			logging.String("to", to),
			logging.Err(err),
		)
		return nil, ToStatusError(err)
	}

	resp, err := separationToStruct(sep)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return resp, nil
}

func (s *EphemerisService) parseDate(req *structpb.Struct, key string) (time.Time, error) {
	raw, err := stringField(req, key, dateparse.Now)
	if err != nil {
		return time.Time{}, err
	}
	date, err := dateparse.Parse(raw, s.clock)
	if err != nil && s.dates != nil {
		s.dates.RecordDateParseFailure()
	}
	return date, err
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EphemerisServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPlanets", Handler: listPlanetsHandler},
		{MethodName: "GetPositions", Handler: getPositionsHandler},
		{MethodName: "Track", Handler: trackHandler},
		{MethodName: "GetSeparation", Handler: separationHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "planets/v1/ephemeris.proto",
}

func listPlanetsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EphemerisServer).ListPlanets(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListPlanetsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EphemerisServer).ListPlanets(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getPositionsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EphemerisServer).GetPositions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetPositionsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EphemerisServer).GetPositions(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func trackHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EphemerisServer).Track(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TrackMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EphemerisServer).Track(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func separationHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EphemerisServer).GetSeparation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SeparationMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EphemerisServer).GetSeparation(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

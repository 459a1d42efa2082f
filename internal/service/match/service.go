package match

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/engine"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/repository"
)

// Service implements the MatchService API on top of the engine.
// Every method acts on behalf of the authenticated caller found in ctx and
// returns gRPC status errors (svcErr.Map).
type Service struct {
	appCtx *app.AppContext
	eng    *engine.Engine
}

// NewMatchService creates the service from the engine held by AppContext.
func NewMatchService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, eng: appCtx.Engine}
}

// log prefers the request-scoped logger set by the transport.
func (s *Service) log(ctx context.Context) *slog.Logger {
	if l, ok := logger.FromContext(ctx); ok {
		return l
	}
	return s.appCtx.Logger
}

func (s *Service) caller(ctx context.Context) (uint64, error) {
	id, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return 0, svcErr.Map(svcErr.ErrUnauthenticated)
	}
	return id, nil
}

func parseUserID(field, value string) (uint64, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument(field + " must be a valid uint64")
	}
	return id, nil
}

// callerAndTarget resolves the caller and the target_user_id of a request.
func (s *Service) callerAndTarget(ctx context.Context, target string) (uint64, uint64, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return 0, 0, err
	}
	other, err := parseUserID("target_user_id", target)
	if err != nil {
		return 0, 0, err
	}
	return me, other, nil
}

// fail logs unexpected errors and maps every error to a status.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	if svcErr.KindOf(err) == svcErr.KindInternal {
		s.log(ctx).Error(op+" failed", "err", err)
	} else {
		s.log(ctx).Debug(op+" rejected", "err", err)
	}
	return svcErr.Map(err)
}

// CreateLike records a like from the caller to the target.
//
// Behavior:
//   - Self like → InvalidArgument; unknown or blocked target → NotFound.
//   - A repeat like → AlreadyExists; exactly one edge is kept.
//   - isMatch reports whether the target had already liked the caller.
//
// Example:
//
//	svc.CreateLike(ctx, &TargetRequest{TargetUserID: "2"})
func (s *Service) CreateLike(ctx context.Context, req *TargetRequest) (*CreateLikeResponse, error) {
	me, target, err := s.callerAndTarget(ctx, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	s.log(ctx).Debug("CreateLike called", "from", me, "to", target)

	res, err := s.eng.Matches.RecordLike(ctx, me, target)
	if err != nil {
		return nil, s.fail(ctx, "CreateLike", err)
	}
	return &CreateLikeResponse{Created: res.Created, IsMatch: res.IsMatch}, nil
}

// ListLikes pages through likes the caller received (default) or sent.
func (s *Service) ListLikes(ctx context.Context, req *ListLikesRequest) (*ListLikesResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	direction := repository.Direction(req.Direction)
	if direction == "" {
		direction = repository.DirectionReceived
	}
	s.log(ctx).Debug("ListLikes called", "user", me, "direction", direction, "token", req.PaginationToken)

	items, next, err := s.eng.Matches.ListLikes(ctx, me, direction, req.PaginationToken)
	if err != nil {
		return nil, s.fail(ctx, "ListLikes", err)
	}
	return &ListLikesResponse{Likes: items, NextPaginationToken: next}, nil
}

// CountLikesReceived returns how many non-blocked users liked the caller.
func (s *Service) CountLikesReceived(ctx context.Context, _ *Empty) (*CountResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.eng.Matches.CountLikesReceived(ctx, me)
	if err != nil {
		return nil, s.fail(ctx, "CountLikesReceived", err)
	}
	return &CountResponse{Count: n}, nil
}

func (s *Service) BlockUser(ctx context.Context, req *TargetRequest) (*Empty, error) {
	me, target, err := s.callerAndTarget(ctx, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	if err := s.eng.Blocks.Block(ctx, me, target); err != nil {
		return nil, s.fail(ctx, "BlockUser", err)
	}
	return &Empty{}, nil
}

// UnblockUser lifts a block the caller placed. Anything else is NotFound.
func (s *Service) UnblockUser(ctx context.Context, req *TargetRequest) (*Empty, error) {
	me, target, err := s.callerAndTarget(ctx, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	if err := s.eng.Blocks.Unblock(ctx, me, target); err != nil {
		return nil, s.fail(ctx, "UnblockUser", err)
	}
	return &Empty{}, nil
}

// SendMessage delivers content to a matched, non-blocked target.
func (s *Service) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	me, target, err := s.callerAndTarget(ctx, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	msg, err := s.eng.Messaging.Send(ctx, me, target, req.Content)
	if err != nil {
		return nil, s.fail(ctx, "SendMessage", err)
	}
	return &SendMessageResponse{Message: msg}, nil
}

// GetThread returns one page of the conversation, newest first, and marks
// the target's messages to the caller as read.
func (s *Service) GetThread(ctx context.Context, req *GetThreadRequest) (*GetThreadResponse, error) {
	me, target, err := s.callerAndTarget(ctx, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	msgs, next, err := s.eng.Messaging.Thread(ctx, me, target, req.PaginationToken)
	if err != nil {
		return nil, s.fail(ctx, "GetThread", err)
	}
	return &GetThreadResponse{Messages: msgs, NextPaginationToken: next}, nil
}

func (s *Service) CountUnread(ctx context.Context, _ *Empty) (*CountResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.eng.Messaging.CountUnread(ctx, me)
	if err != nil {
		return nil, s.fail(ctx, "CountUnread", err)
	}
	return &CountResponse{Count: n}, nil
}

// ViewProfile returns the target's summary, match flag and contact decision.
func (s *Service) ViewProfile(ctx context.Context, req *TargetRequest) (*ViewProfileResponse, error) {
	me, target, err := s.callerAndTarget(ctx, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	view, err := s.eng.Profiles.ViewProfile(ctx, me, target)
	if err != nil {
		return nil, s.fail(ctx, "ViewProfile", err)
	}
	return &ViewProfileResponse{Profile: view}, nil
}

// GetContact returns only the contact disclosure for the target.
func (s *Service) GetContact(ctx context.Context, req *TargetRequest) (*GetContactResponse, error) {
	me, target, err := s.callerAndTarget(ctx, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	d, err := s.eng.Visibility.ViewContact(ctx, me, target)
	if err != nil {
		return nil, s.fail(ctx, "GetContact", err)
	}
	return &GetContactResponse{Contact: d}, nil
}

// UnlockContact unlocks a PREMIUM_ONLY contact, spending a card if needed.
//
// Behavior:
//   - No cards left → FailedPrecondition with ErrorInfo needs_card=true.
//   - Retrying an unlock is free and answers method "already_viewed".
func (s *Service) UnlockContact(ctx context.Context, req *TargetRequest) (*UnlockContactResponse, error) {
	me, target, err := s.callerAndTarget(ctx, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	res, err := s.eng.Visibility.Unlock(ctx, me, target)
	if err != nil {
		return nil, s.fail(ctx, "UnlockContact", err)
	}
	return &UnlockContactResponse{Method: res.Method, RemainingCards: res.RemainingCards}, nil
}

// Nearby lists opted-in users around the caller. needs_opt_in and
// needs_location come back as a status, not as an error.
func (s *Service) Nearby(ctx context.Context, req *NearbyRequest) (*NearbyResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.eng.Proximity.Nearby(ctx, me, req.Gender, req.MaxDistanceKm)
	if err != nil {
		return nil, s.fail(ctx, "Nearby", err)
	}
	return &NearbyResponse{Status: string(res.Status), Items: res.Items}, nil
}

func (s *Service) UpdateLocation(ctx context.Context, req *UpdateLocationRequest) (*Empty, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.eng.Proximity.UpdateLocation(ctx, me, req.Latitude, req.Longitude); err != nil {
		return nil, s.fail(ctx, "UpdateLocation", err)
	}
	return &Empty{}, nil
}

func (s *Service) SetShowNearby(ctx context.Context, req *SetShowNearbyRequest) (*Empty, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.eng.Proximity.SetShowNearby(ctx, me, req.Enabled); err != nil {
		return nil, s.fail(ctx, "SetShowNearby", err)
	}
	return &Empty{}, nil
}

// GetDailyPick returns today's recommendation; profile is absent when the
// pool is empty or the stored pick is no longer eligible.
func (s *Service) GetDailyPick(ctx context.Context, _ *Empty) (*DailyPickResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	pick, err := s.eng.Daily.GetDailyPick(ctx, me)
	if err != nil {
		return nil, s.fail(ctx, "GetDailyPick", err)
	}
	return &DailyPickResponse{Date: pick.Date, Profile: pick.Profile}, nil
}

func (s *Service) Discover(ctx context.Context, req *DiscoverRequest) (*DiscoverResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	profiles, next, err := s.eng.Profiles.Discover(ctx, me, req.Gender, req.PaginationToken)
	if err != nil {
		return nil, s.fail(ctx, "Discover", err)
	}
	return &DiscoverResponse{Profiles: profiles, NextPaginationToken: next}, nil
}

func (s *Service) AddPhoto(ctx context.Context, req *AddPhotoRequest) (*AddPhotoResponse, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	photo, err := s.eng.Profiles.AddPhoto(ctx, me, req.ContentType, req.Data)
	if err != nil {
		return nil, s.fail(ctx, "AddPhoto", err)
	}
	s.log(ctx).Info("photo added", "user", me, "photo", photo.ID, "bytes", len(req.Data))
	return &AddPhotoResponse{Photo: photo}, nil
}

func (s *Service) DeletePhoto(ctx context.Context, req *DeletePhotoRequest) (*Empty, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.PhotoID == "" {
		return nil, svcErr.InvalidArgument("photo_id is required")
	}
	if err := s.eng.Profiles.DeletePhoto(ctx, me, req.PhotoID); err != nil {
		return nil, s.fail(ctx, "DeletePhoto", err)
	}
	return &Empty{}, nil
}

// DeleteAccount removes the caller and everything that references them.
func (s *Service) DeleteAccount(ctx context.Context, _ *Empty) (*Empty, error) {
	me, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.eng.Profiles.DeleteAccount(ctx, me); err != nil {
		return nil, s.fail(ctx, "DeleteAccount", err)
	}
	return &Empty{}, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dropx/internal/config"
	"dropx/internal/delivery-service/core/domain/dto"
	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/myerrors"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/mylogger"
)

const postExpirySweepInterval = time.Hour

type PostsService struct {
	mylog      mylogger.Logger
	posts      ports.IPostRepo
	profiles   ports.IProfileRepo
	catalog    ports.ICatalogService
	runner     ports.ITxRunner
	dispatcher ports.IDispatcher
	matchCfg   *config.Matchingconfig
}

func NewPostsService(
	log mylogger.Logger,
	posts ports.IPostRepo,
	profiles ports.IProfileRepo,
	catalog ports.ICatalogService,
	runner ports.ITxRunner,
	dispatcher ports.IDispatcher,
	matchCfg *config.Matchingconfig,
) ports.IPostsService {
	return &PostsService{
		mylog:      log,
		posts:      posts,
		profiles:   profiles,
		catalog:    catalog,
		runner:     runner,
		dispatcher: dispatcher,
		matchCfg:   matchCfg,
	}
}

func (ps *PostsService) CreatePost(ctx context.Context, driver model.Principal, req dto.CreatePostDto) (*model.DriverPost, error) {
	log := ps.mylog.Action("CreatePost")

	if !driver.HasCapability(model.CapabilityDrive) {
		return nil, myerrors.E(myerrors.KindPermission, "only drivers can create posts")
	}

	profile, err := ps.profiles.DriverProfile(ctx, driver.ID)
	if err != nil {
		return nil, err
	}
	if !profile.IsDriverVerified {
		return nil, myerrors.E(myerrors.KindPermission, "only verified drivers can create posts")
	}
	if !profile.HasApprovedVehicle {
		return nil, myerrors.E(myerrors.KindValidation, "an approved vehicle is required to create a post")
	}

	if req.VehicleID == nil || req.StartCity == nil || req.EndCity == nil ||
		req.DepartureDate == nil || req.DepartureTime == nil || req.MaxWeight == nil {
		return nil, myerrors.E(myerrors.KindValidation, "vehicle, cities, departure and max_weight are required")
	}
	if *req.MaxWeight <= 0 {
		return nil, myerrors.E(myerrors.KindValidation, "max_weight must be positive")
	}

	departure, err := time.Parse("2006-01-02", *req.DepartureDate)
	if err != nil {
		return nil, myerrors.E(myerrors.KindValidation, "departure_date must be YYYY-MM-DD")
	}
	post := &model.DriverPost{
		ID:            uuid.New(),
		UserID:        driver.ID,
		VehicleID:     *req.VehicleID,
		DepartureDate: departure,
		DepartureTime: *req.DepartureTime,
		MaxWeight:     *req.MaxWeight,
		Status:        model.PostActive,
	}
	if post.Departed(time.Now()) {
		return nil, myerrors.E(myerrors.KindValidation, "departure_date cannot be in the past")
	}

	start, err := ps.catalog.GetOrCreateCity(ctx, *req.StartCity)
	if err != nil {
		return nil, err
	}
	end, err := ps.catalog.GetOrCreateCity(ctx, *req.EndCity)
	if err != nil {
		return nil, err
	}
	post.StartCity = start
	post.EndCity = end

	if err := ps.posts.Create(ctx, post); err != nil {
		log.Error("cannot create post", err)
		return nil, err
	}

	if err := ps.posts.AppendLog(ctx, model.PostLog{
		ID:       uuid.New(),
		PostID:   post.ID,
		Action:   "Post Created",
		Comments: fmt.Sprintf("Post created from %s to %s, max weight %.2f kg", start.Name, end.Name, post.MaxWeight),
	}); err != nil {
		log.Error("cannot append post log", err)
	}

	log.Info("post created", "post-id", post.ID, "driver-id", driver.ID, "route", start.Name+" -> "+end.Name)
	return post, nil
}

func (ps *PostsService) UpdatePost(ctx context.Context, driver model.Principal, postID uuid.UUID, req dto.UpdatePostDto) (*model.DriverPost, error) {
	log := ps.mylog.Action("UpdatePost")

	post, err := ps.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != driver.ID {
		return nil, myerrors.ErrNotOwner
	}
	if post.Status != model.PostActive {
		return nil, myerrors.E(myerrors.KindConflict, "only active posts can be edited")
	}

	if req.DepartureDate != nil {
		departure, err := time.Parse("2006-01-02", *req.DepartureDate)
		if err != nil {
			return nil, myerrors.E(myerrors.KindValidation, "departure_date must be YYYY-MM-DD")
		}
		post.DepartureDate = departure
	}
	if req.DepartureTime != nil {
		post.DepartureTime = *req.DepartureTime
	}
	if req.MaxWeight != nil {
		if *req.MaxWeight <= 0 {
			return nil, myerrors.E(myerrors.KindValidation, "max_weight must be positive")
		}
		post.MaxWeight = *req.MaxWeight
	}
	if req.Status != nil {
		switch model.PostStatus(*req.Status) {
		case model.PostActive, model.PostInactive:
			post.Status = model.PostStatus(*req.Status)
		default:
			return nil, myerrors.E(myerrors.KindValidation, "status can only be set to Active or Inactive")
		}
	}

	// Date-based auto-expiry on owner edits.
	if post.Departed(time.Now()) {
		post.Status = model.PostExpired
	}

	if err := ps.posts.Update(ctx, post); err != nil {
		log.Error("cannot update post", err)
		return nil, err
	}

	if err := ps.posts.AppendLog(ctx, model.PostLog{
		ID:       uuid.New(),
		PostID:   post.ID,
		Action:   "Post Updated",
		Comments: fmt.Sprintf("Post updated by driver %s", driver.ID),
	}); err != nil {
		log.Error("cannot append post log", err)
	}

	return post, nil
}

func (ps *PostsService) ListOpenPosts(ctx context.Context, startCity, endCity string) ([]model.DriverPost, error) {
	return ps.posts.ListOpen(ctx, startCity, endCity)
}

func (ps *PostsService) ListOwnPosts(ctx context.Context, driver model.Principal) ([]model.DriverPost, error) {
	return ps.posts.ListByOwner(ctx, driver.ID)
}

// MatchPost is the coarse multi-sender matching mode: a post accepts up to
// the configured cap of match requests, then flips to Booked. Requests are
// logged, not weight-checked; the weight-checked path is AcceptDelivery.
func (ps *PostsService) MatchPost(ctx context.Context, sender model.Principal, postID uuid.UUID) (dto.MatchResultDto, error) {
	log := ps.mylog.Action("MatchPost")

	if !sender.HasCapability(model.CapabilitySend) {
		return dto.MatchResultDto{}, myerrors.E(myerrors.KindPermission, "only senders can match posts")
	}

	var result dto.MatchResultDto
	var ownerID uuid.UUID
	err := ps.runner.WithPost(ctx, postID, func(tx ports.IMatchTx) error {
		post := tx.Post()
		ownerID = post.UserID
		if !post.Open() {
			return myerrors.ErrPostUnavailable
		}
		if post.MatchRequests >= ps.matchCfg.MaxMatchRequests {
			return myerrors.ErrPostFull
		}

		count, err := tx.IncrementMatchRequests(ctx)
		if err != nil {
			return err
		}

		status := post.Status
		if count >= ps.matchCfg.MaxMatchRequests {
			status = model.PostBooked
			if err := tx.SetPostStatus(ctx, model.PostBooked); err != nil {
				return err
			}
		}

		if err := tx.AppendPostLog(ctx, model.PostLog{
			ID:       uuid.New(),
			PostID:   post.ID,
			Action:   "Post Matched",
			Comments: fmt.Sprintf("Post matched by sender %s (request %d of %d)", sender.ID, count, ps.matchCfg.MaxMatchRequests),
		}); err != nil {
			return err
		}

		result = dto.MatchResultDto{
			PostID:        post.ID,
			MatchRequests: count,
			PostStatus:    string(status),
			Message:       fmt.Sprintf("Post %s matched with a delivery", post.ID),
		}
		return nil
	})
	if err != nil {
		return dto.MatchResultDto{}, err
	}

	ps.dispatcher.Dispatch(ctx, []model.Event{{
		Kind:       model.EventPostMatched,
		PostID:     &postID,
		OccurredAt: time.Now(),
		Recipients: []model.Recipient{{
			UserID:  ownerID,
			Type:    model.NotifPostMatched,
			Message: fmt.Sprintf("Your post %s received match request %d of %d.", postID, result.MatchRequests, ps.matchCfg.MaxMatchRequests),
		}},
	}})

	log.Info("post matched", "post-id", postID, "sender-id", sender.ID, "requests", result.MatchRequests)
	return result, nil
}

// RunExpiryMonitor periodically expires posts whose departure date passed.
func (ps *PostsService) RunExpiryMonitor(ctx context.Context) {
	log := ps.mylog.Action("RunExpiryMonitor")
	ticker := time.NewTicker(postExpirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ps.posts.ExpireDeparted(ctx, time.Now())
			if err != nil {
				log.Error("cannot expire departed posts", err)
				continue
			}
			if n > 0 {
				log.Info("expired departed posts", "count", n)
			}
		}
	}
}

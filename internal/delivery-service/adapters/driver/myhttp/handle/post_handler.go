package handle

import (
	"encoding/json"
	"net/http"

	"dropx/internal/delivery-service/core/domain/dto"
	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/ports"
	"dropx/internal/delivery-service/core/services"
	"dropx/internal/mylogger"
)

type PostHandler struct {
	postsService ports.IPostsService
	capacity     *services.CapacityLedger
	log          mylogger.Logger
}

func NewPostHandler(ps ports.IPostsService, capacity *services.CapacityLedger, log mylogger.Logger) *PostHandler {
	return &PostHandler{
		postsService: ps,
		capacity:     capacity,
		log:          log,
	}
}

func toPostResponse(p *model.DriverPost, remaining *float64) dto.PostResponseDto {
	return dto.PostResponseDto{
		PostID:        p.ID,
		UserID:        p.UserID,
		StartCity:     p.StartCity.Name,
		EndCity:       p.EndCity.Name,
		DepartureDate: p.DepartureDate.Format("2006-01-02"),
		DepartureTime: p.DepartureTime,
		MaxWeight:     p.MaxWeight,
		Status:        string(p.Status),
		RemainingKg:   remaining,
	}
}

func (ph *PostHandler) CreatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		req := dto.CreatePostDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		post, err := ph.postsService.CreatePost(r.Context(), principal, req)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusCreated, toPostResponse(post, &post.MaxWeight))
	}
}

func (ph *PostHandler) UpdatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		postID, err := pathUUID(r, "post_id")
		if err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		req := dto.UpdatePostDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		post, err := ph.postsService.UpdatePost(r.Context(), principal, postID, req)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, toPostResponse(post, nil))
	}
}

// ListOpenPosts is the sender-facing browse view: open posts annotated with
// a best-effort remaining capacity.
func (ph *PostHandler) ListOpenPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := principalFrom(r); err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		posts, err := ph.postsService.ListOpenPosts(r.Context(),
			r.URL.Query().Get("start_city"),
			r.URL.Query().Get("end_city"),
		)
		if err != nil {
			serviceError(w, err)
			return
		}

		res := make([]dto.PostResponseDto, 0, len(posts))
		for i := range posts {
			p := &posts[i]
			if remaining, err := ph.capacity.RemainingCapacity(r.Context(), p); err == nil {
				res = append(res, toPostResponse(p, &remaining))
			} else {
				res = append(res, toPostResponse(p, nil))
			}
		}
		jsonResponse(w, http.StatusOK, res)
	}
}

func (ph *PostHandler) ListOwnPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		posts, err := ph.postsService.ListOwnPosts(r.Context(), principal)
		if err != nil {
			serviceError(w, err)
			return
		}

		res := make([]dto.PostResponseDto, 0, len(posts))
		for i := range posts {
			res = append(res, toPostResponse(&posts[i], nil))
		}
		jsonResponse(w, http.StatusOK, res)
	}
}

func (ph *PostHandler) MatchPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := principalFrom(r)
		if err != nil {
			JsonError(w, http.StatusUnauthorized, err)
			return
		}

		postID, err := pathUUID(r, "post_id")
		if err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		result, err := ph.postsService.MatchPost(r.Context(), principal, postID)
		if err != nil {
			serviceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, result)
	}
}

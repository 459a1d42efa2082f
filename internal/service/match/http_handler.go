package match

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/oggyb/muzz-match/internal/server/response"
)

// httpHandler exposes the Service as REST routes under /v1. Every route
// runs behind the bearer-token middleware, so the caller is in the request
// context exactly as on the gRPC side.
type httpHandler struct {
	svc      *Service
	maxPhoto int64
}

// RegisterRoutes mounts the Match routes on g.
func (r *Registrar) RegisterRoutes(g *echo.Group) {
	h := &httpHandler{svc: r.svc, maxPhoto: r.appCtx.Engine.Profiles.MaxPhotoBytes()}

	g.POST("/likes", h.createLike)
	g.GET("/likes", h.listLikes)
	g.GET("/likes/count", h.countLikesReceived)

	g.POST("/blocks", h.blockUser)
	g.DELETE("/blocks/:userId", h.unblockUser)

	g.POST("/messages", h.sendMessage)
	g.GET("/messages/unread/count", h.countUnread)
	g.GET("/messages/:userId", h.getThread)

	g.GET("/profiles/:userId", h.viewProfile)
	g.GET("/profiles/:userId/contact", h.getContact)
	g.POST("/profiles/:userId/contact/unlock", h.unlockContact)

	g.GET("/nearby", h.nearby)
	g.GET("/daily-pick", h.dailyPick)
	g.GET("/discover", h.discover)

	g.PUT("/me/location", h.updateLocation)
	g.PUT("/me/nearby", h.setShowNearby)
	g.POST("/me/photos", h.addPhoto)
	g.DELETE("/me/photos/:photoId", h.deletePhoto)
	g.DELETE("/me", h.deleteAccount)
}

// bind decodes the JSON body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.Validate(req)
}

func tokenParam(c echo.Context) *string {
	if t := c.QueryParam("paginationToken"); t != "" {
		return &t
	}
	return nil
}

func (h *httpHandler) target(c echo.Context) (*TargetRequest, error) {
	req := &TargetRequest{TargetUserID: c.Param("userId")}
	return req, c.Validate(req)
}

func (h *httpHandler) createLike(c echo.Context) error {
	var req TargetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.CreateLike(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	message := "Like recorded"
	if resp.IsMatch {
		message = "It's a match"
	}
	return response.Success(c, http.StatusCreated, resp, message)
}

func (h *httpHandler) listLikes(c echo.Context) error {
	req := ListLikesRequest{Direction: c.QueryParam("direction"), PaginationToken: tokenParam(c)}
	if err := c.Validate(&req); err != nil {
		return err
	}
	resp, err := h.svc.ListLikes(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, resp, "")
}

func (h *httpHandler) countLikesReceived(c echo.Context) error {
	resp, err := h.svc.CountLikesReceived(c.Request().Context(), &Empty{})
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, resp, "")
}

func (h *httpHandler) blockUser(c echo.Context) error {
	var req TargetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.svc.BlockUser(c.Request().Context(), &req); err != nil {
		return err
	}
	return response.Success(c, http.StatusCreated, nil, "User blocked")
}

func (h *httpHandler) unblockUser(c echo.Context) error {
	req, err := h.target(c)
	if err != nil {
		return err
	}
	if _, err := h.svc.UnblockUser(c.Request().Context(), req); err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, nil, "User unblocked")
}

func (h *httpHandler) sendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.svc.SendMessage(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusCreated, resp, "Message sent")
}

func (h *httpHandler) getThread(c echo.Context) error {
	req := GetThreadRequest{TargetUserID: c.Param("userId"), PaginationToken: tokenParam(c)}
	if err := c.Validate(&req); err != nil {
		return err
	}
	resp, err := h.svc.GetThread(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, resp, "")
}

func (h *httpHandler) countUnread(c echo.Context) error {
	resp, err := h.svc.CountUnread(c.Request().Context(), &Empty{})
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, resp, "")
}

func (h *httpHandler) viewProfile(c echo.Context) error {
	req, err := h.target(c)
	if err != nil {
		return err
	}
	resp, err := h.svc.ViewProfile(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, resp, "")
}

func (h *httpHandler) getContact(c echo.Context) error {
	req, err := h.target(c)
	if err != nil {
		return err
	}
	resp, err := h.svc.GetContact(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, resp, "")
}

func (h *httpHandler) unlockContact(c echo.Context) error {
	req, err := h.target(c)
	if err != nil {
		return err
	}
	resp, err := h.svc.UnlockContact(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, resp, "Contact unlocked")
}

func (h *httpHandler) nearby(c echo.Context) error {
	var req NearbyRequest
	err := echo.QueryParamsBinder(c).
		MustFloat64("maxDistanceKm", &req.MaxDistanceKm).
		String("gender", &req.Gender).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "maxDistanceKm must be a number")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	resp, err := h.svc.Nearby(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, resp, "")
}

func (h *httpHandler) dailyPick(c echo.Context) error {
	resp, err := h.svc.GetDailyPick(c.Request().Context(), &Empty{})
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, resp, "")
}

func (h *httpHandler) discover(c echo.Context) error {
	req := DiscoverRequest{Gender: c.QueryParam("gender"), PaginationToken: tokenParam(c)}
	if err := c.Validate(&req); err != nil {
		return err
	}
	resp, err := h.svc.Discover(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, resp, "")
}

func (h *httpHandler) updateLocation(c echo.Context) error {
	var req UpdateLocationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.svc.UpdateLocation(c.Request().Context(), &req); err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, nil, "Location updated")
}

func (h *httpHandler) setShowNearby(c echo.Context) error {
	var req SetShowNearbyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.svc.SetShowNearby(c.Request().Context(), &req); err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, req, "")
}

// addPhoto accepts a multipart "photo" file or a raw image body.
func (h *httpHandler) addPhoto(c echo.Context) error {
	var (
		body        io.Reader
		contentType string
	)
	mediaType, _, _ := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if strings.HasPrefix(mediaType, "multipart/") {
		fh, err := c.FormFile("photo")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"photo\" is required")
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		body, contentType = f, fh.Header.Get(echo.HeaderContentType)
	} else {
		body, contentType = c.Request().Body, mediaType
	}

	// one byte over the limit is enough for the engine to reject it
	data, err := io.ReadAll(io.LimitReader(body, h.maxPhoto+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read photo")
	}
	if contentType == "application/octet-stream" {
		contentType = ""
	}

	resp, err := h.svc.AddPhoto(c.Request().Context(), &AddPhotoRequest{ContentType: contentType, Data: data})
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusCreated, resp, "Photo added")
}

func (h *httpHandler) deletePhoto(c echo.Context) error {
	req := DeletePhotoRequest{PhotoID: c.Param("photoId")}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if _, err := h.svc.DeletePhoto(c.Request().Context(), &req); err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, nil, "Photo deleted")
}

func (h *httpHandler) deleteAccount(c echo.Context) error {
	if _, err := h.svc.DeleteAccount(c.Request().Context(), &Empty{}); err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, nil, "Account deleted")
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/go-blog/internal/errors"
	"github.com/pribylovaa/go-blog/internal/models"
	"github.com/pribylovaa/go-blog/internal/service"
)

// ListPosts — GET /posts?limit&offset&sortBy.
func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}

	offset, err := intParam(q.Get("offset"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}

	posts, err := h.Posts.ListPosts(r.Context(), service.ListPostsInput{
		Limit:  limit,
		Offset: offset,
		SortBy: q.Get("sortBy"),
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]postResponse, 0, len(posts))
	for i := range posts {
		resp, err := h.postResponse(r, &posts[i])
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}
		out = append(out, resp)
	}

	writeJSON(w, http.StatusOK, out)
}

// GetPost — GET /posts/{id}.
func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := h.Posts.PostByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.writePost(w, r, http.StatusOK, post)
}

// CreatePost — POST /posts, multipart: title, content, images[].
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.parseMultipart(w, r); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, closeUploads, err := openUploads(r, "images")
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}
	defer closeUploads()

	title, _ := formValue(r, "title")
	content, _ := formValue(r, "content")

	post, err := h.Posts.CreatePost(r.Context(), service.CreatePostInput{
		AuthorID: who.UserID,
		Title:    title,
		Content:  content,
		Images:   uploads,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.writePost(w, r, http.StatusCreated, post)
}

// UpdatePost — PATCH /posts/{id}, multipart. Отсутствующие поля не меняются;
// присланные images заменяют весь набор.
func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}

	id, ok := postID(w, r)
	if !ok {
		return
	}

	if err := h.parseMultipart(w, r); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, closeUploads, err := openUploads(r, "images")
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return
	}
	defer closeUploads()

	in := service.UpdatePostInput{ID: id, AuthorID: who.UserID, Images: uploads}
	if v, ok := formValue(r, "title"); ok {
		in.Title = &v
	}
	if v, ok := formValue(r, "content"); ok {
		in.Content = &v
	}

	post, err := h.Posts.UpdatePost(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.writePost(w, r, http.StatusOK, post)
}

// DeletePost — DELETE /posts/{id}. 204 без тела.
func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r)
	if !ok {
		return
	}

	id, ok := postID(w, r)
	if !ok {
		return
	}

	if err := h.Posts.DeletePost(r.Context(), id, who.UserID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) writePost(w http.ResponseWriter, r *http.Request, status int, post *models.Post) {
	resp, err := h.postResponse(r, post)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, status, resp)
}

func (h *Handlers) postResponse(r *http.Request, post *models.Post) (postResponse, error) {
	urls, err := h.Posts.ImageURLs(r.Context(), post.Images)
	if err != nil {
		return postResponse{}, err
	}

	return postFromModel(post, urls), nil
}

// postID разбирает {id} из пути; битый UUID — 400.
func postID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument())
		return uuid.Nil, false
	}

	return id, true
}

// intParam: пустая строка — 0 (значение по умолчанию решает сервис).
func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}

	return strconv.Atoi(s)
}

package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"microblog/internal/auth"
	"microblog/internal/forms"
	"microblog/internal/models"
	"microblog/internal/pagination"
	"microblog/internal/store"
	"microblog/web"
)

type Handler struct {
	store    *store.Store
	sessions *auth.Manager
	tpls     *template.Template
	log      *zap.Logger
}

func New(st *store.Store, sessions *auth.Manager, log *zap.Logger) *Handler {
	tpls := template.Must(template.ParseFS(web.Templates, "templates/*.html"))
	return &Handler{store: st, sessions: sessions, tpls: tpls, log: log}
}

// Routes registers all views on the router. Write views carry the auth
// requirement; everything else is public.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/group/{slug}/", h.GroupPosts)
	r.Get("/profile/{username}/", h.Profile)
	r.Get("/posts/{id}/", h.PostDetail)

	r.HandleFunc("/create/", h.RequireAuth(h.PostCreate))
	r.HandleFunc("/posts/{id}/edit/", h.RequireAuth(h.PostEdit))

	r.HandleFunc("/auth/signup/", h.Signup)
	r.HandleFunc("/auth/login/", h.Login)
	r.Get("/auth/logout/", h.Logout)

	r.NotFound(h.NotFound)
}

func (h *Handler) render(w http.ResponseWriter, name string, data map[string]any) {
	if err := h.tpls.ExecuteTemplate(w, name, data); err != nil {
		h.log.Error("render template", zap.String("template", name), zap.Error(err))
	}
}

// base builds the context every template needs: page title and the
// current user for the navigation bar.
func (h *Handler) base(r *http.Request, title string) map[string]any {
	data := map[string]any{"title": title}
	if u, ok := h.currentUser(r); ok {
		data["user"] = u
	}
	return data
}

func (h *Handler) currentUser(r *http.Request) (models.User, bool) {
	uid, ok := h.sessions.CurrentUserID(r)
	if !ok {
		return models.User{}, false
	}
	u, err := h.store.UserByID(r.Context(), uid)
	if err != nil {
		return models.User{}, false
	}
	return u, true
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("storage failure", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// -------- Listing views

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := h.store.PostPage(r.Context(), store.PostFilter{},
		pagination.FromQuery(r.URL.Query().Get("page")))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	data := h.base(r, "Latest posts")
	data["page_obj"] = page
	h.render(w, "index", data)
}

func (h *Handler) GroupPosts(w http.ResponseWriter, r *http.Request) {
	group, err := h.store.GroupBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, store.ErrNotFound) {
		h.NotFound(w, r)
		return
	} else if err != nil {
		h.serverError(w, r, err)
		return
	}

	page, err := h.store.PostPage(r.Context(), store.PostFilter{GroupID: group.ID},
		pagination.FromQuery(r.URL.Query().Get("page")))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	data := h.base(r, group.Title)
	data["group"] = group
	data["page_obj"] = page
	h.render(w, "group_list", data)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	author, err := h.store.UserByUsername(r.Context(), chi.URLParam(r, "username"))
	if errors.Is(err, store.ErrNotFound) {
		h.NotFound(w, r)
		return
	} else if err != nil {
		h.serverError(w, r, err)
		return
	}

	page, err := h.store.PostPage(r.Context(), store.PostFilter{AuthorID: author.ID},
		pagination.FromQuery(r.URL.Query().Get("page")))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	data := h.base(r, "Posts by "+author.Username)
	data["author"] = author
	data["page_obj"] = page
	h.render(w, "profile", data)
}

func (h *Handler) PostDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.NotFound(w, r)
		return
	}
	post, err := h.store.PostByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.NotFound(w, r)
		return
	} else if err != nil {
		h.serverError(w, r, err)
		return
	}

	count, err := h.store.CountPosts(r.Context(), store.PostFilter{AuthorID: post.UserID})
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	data := h.base(r, post.Author)
	data["post"] = post
	data["count_posts_author"] = count
	if uid, ok := h.sessions.CurrentUserID(r); ok && uid == post.UserID {
		data["can_edit"] = true
	}
	h.render(w, "post_detail", data)
}

// -------- Write views

func (h *Handler) PostCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}

	form := &forms.PostForm{}
	switch r.Method {
	case http.MethodGet:
		h.renderPostForm(w, r, form, nil)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	form.Text = strings.TrimSpace(r.FormValue("text"))
	form.GroupID = strings.TrimSpace(r.FormValue("group"))
	form.Validate()
	groupID, err := h.resolveGroup(r, form)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if !form.Valid() {
		h.renderPostForm(w, r, form, nil)
		return
	}

	// The author is always the authenticated requester; any submitted
	// author value is ignored.
	if _, err := h.store.CreatePost(r.Context(), user.ID, form.Text, groupID); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/profile/"+url.PathEscape(user.Username)+"/", http.StatusSeeOther)
}

func (h *Handler) PostEdit(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(r)
	if !ok {
		http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.NotFound(w, r)
		return
	}
	post, err := h.store.PostByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.NotFound(w, r)
		return
	} else if err != nil {
		h.serverError(w, r, err)
		return
	}

	detailURL := "/posts/" + strconv.FormatInt(post.ID, 10) + "/"

	// Only the author may see the edit form or change anything; everyone
	// else is sent to the detail view.
	if post.UserID != user.ID {
		http.Redirect(w, r, detailURL, http.StatusSeeOther)
		return
	}

	form := &forms.PostForm{Text: post.Text}
	if post.GroupID != nil {
		form.GroupID = strconv.FormatInt(*post.GroupID, 10)
	}

	switch r.Method {
	case http.MethodGet:
		h.renderPostForm(w, r, form, &post)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	form.Text = strings.TrimSpace(r.FormValue("text"))
	form.GroupID = strings.TrimSpace(r.FormValue("group"))
	form.Validate()
	groupID, err := h.resolveGroup(r, form)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if !form.Valid() {
		h.renderPostForm(w, r, form, &post)
		return
	}

	if err := h.store.UpdatePost(r.Context(), post.ID, form.Text, groupID); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, detailURL, http.StatusSeeOther)
}

// resolveGroup turns the submitted group value into a group ID, recording
// a form error when the value does not name an existing group. An empty
// value means no group.
func (h *Handler) resolveGroup(r *http.Request, form *forms.PostForm) (*int64, error) {
	if form.GroupID == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(form.GroupID, 10, 64)
	if err != nil {
		form.AddError("group", "Choose a valid group.")
		return nil, nil
	}
	group, err := h.store.GroupByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		form.AddError("group", "Choose a valid group.")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group.ID, nil
}

func (h *Handler) renderPostForm(w http.ResponseWriter, r *http.Request, form *forms.PostForm, post *models.Post) {
	groups, err := h.store.Groups(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	title := "New post"
	if post != nil {
		title = "Edit post"
	}
	data := h.base(r, title)
	data["form"] = form
	data["groups"] = groups
	if post != nil {
		data["post"] = post
		data["is_edit"] = true
	}
	h.render(w, "create_edit_post", data)
}

// -------- Auth views

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.render(w, "signup", h.base(r, "Sign up"))
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	username := strings.TrimSpace(r.FormValue("username"))
	pass := r.FormValue("password")

	if email == "" || username == "" || pass == "" {
		http.Error(w, "All fields required", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	if _, err := h.store.CreateUser(r.Context(), email, username, string(hash)); err != nil {
		http.Error(w, "Email or username already taken", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/auth/login/?registered=1", http.StatusSeeOther)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		data := h.base(r, "Log in")
		data["registered"] = r.URL.Query().Get("registered") == "1"
		data["next"] = r.URL.Query().Get("next")
		h.render(w, "login", data)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	pass := r.FormValue("password")

	user, err := h.store.UserByEmail(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Wrong email or password", http.StatusUnauthorized)
		return
	} else if err != nil {
		h.serverError(w, r, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(pass)) != nil {
		http.Error(w, "Wrong email or password", http.StatusUnauthorized)
		return
	}

	h.sessions.DestroyAll(user.ID)
	if err := h.sessions.Create(w, user.ID); err != nil {
		h.serverError(w, r, err)
		return
	}

	// Send the user back to where they were headed, but only to local
	// destinations.
	next := r.FormValue("next")
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	h.render(w, "notfound", h.base(r, "Not Found"))
}

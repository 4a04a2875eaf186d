package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "gallery.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createPhoto(t *testing.T, repo repositories.PhotoRepository, status models.PhotoStatus) *models.Photo {
	t.Helper()

	photo := &models.Photo{
		AttachmentID: uuid.New(),
		Status:       status,
		Title:        "photo",
	}
	if err := repo.Create(context.Background(), photo); err != nil {
		t.Fatalf("failed to create photo: %v", err)
	}
	return photo
}

func addTags(t *testing.T, repo repositories.TagRepository, photoID uuid.UUID, names ...string) {
	t.Helper()

	for _, name := range names {
		tag := &models.Tag{PhotoID: photoID, Name: name, Type: models.TagTypeLabel, Confidence: 90}
		if _, err := repo.CreateIfAbsent(context.Background(), tag); err != nil {
			t.Fatalf("failed to add tag %q: %v", name, err)
		}
	}
}

func TestTagRepository_CreateIfAbsent(t *testing.T) {
	db := newTestDB(t)
	photos := NewPhotoRepository(db)
	tags := NewTagRepository(db)
	ctx := context.Background()

	photo := createPhoto(t, photos, models.PhotoStatusPublished)

	created, err := tags.CreateIfAbsent(ctx, &models.Tag{PhotoID: photo.ID, Name: "dog", Type: models.TagTypeLabel, Confidence: 92})
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}

	created, err = tags.CreateIfAbsent(ctx, &models.Tag{PhotoID: photo.ID, Name: "dog", Type: models.TagTypeLabel, Confidence: 80})
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if created {
		t.Error("expected duplicate label to be ignored")
	}

	created, err = tags.CreateIfAbsent(ctx, &models.Tag{PhotoID: photo.ID, Name: "dog", Type: models.TagTypeManual, Confidence: 100})
	if err != nil || !created {
		t.Fatalf("manual tag with same name: created=%v err=%v", created, err)
	}

	labels, err := tags.GetByPhotoAndType(ctx, photo.ID, models.TagTypeLabel)
	if err != nil {
		t.Fatalf("GetByPhotoAndType: %v", err)
	}
	if len(labels) != 1 || labels[0].Confidence != 92 {
		t.Errorf("labels = %+v, want one dog label at 92", labels)
	}

	names, err := tags.GetNamesByPhoto(ctx, photo.ID)
	if err != nil {
		t.Fatalf("GetNamesByPhoto: %v", err)
	}
	if len(names) != 1 || names[0] != "dog" {
		t.Errorf("names = %v, want [dog]", names)
	}
}

func TestTagRepository_FindRelated(t *testing.T) {
	db := newTestDB(t)
	photos := NewPhotoRepository(db)
	tags := NewTagRepository(db)
	ctx := context.Background()

	source := createPhoto(t, photos, models.PhotoStatusPublished)
	twoShared := createPhoto(t, photos, models.PhotoStatusPublished)
	oneShared := createPhoto(t, photos, models.PhotoStatusPublished)
	pending := createPhoto(t, photos, models.PhotoStatusPending)
	unrelated := createPhoto(t, photos, models.PhotoStatusPublished)

	addTags(t, tags, source.ID, "dog", "grass", "cat")
	addTags(t, tags, twoShared.ID, "dog", "cat", "sofa")
	addTags(t, tags, oneShared.ID, "grass")
	addTags(t, tags, pending.ID, "dog", "grass", "cat")
	addTags(t, tags, unrelated.ID, "car")

	tests := []struct {
		name  string
		limit int
		want  []uuid.UUID
	}{
		{name: "all matches", limit: 10, want: []uuid.UUID{twoShared.ID, oneShared.ID}},
		{name: "limited", limit: 1, want: []uuid.UUID{twoShared.ID}},
		{name: "zero limit", limit: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			related, err := tags.FindRelated(ctx, source.ID, []string{"dog", "grass", "cat"}, tt.limit)
			if err != nil {
				t.Fatalf("FindRelated: %v", err)
			}
			if len(related) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(related), len(tt.want))
			}
			for i, id := range tt.want {
				if related[i].Photo.ID != id {
					t.Errorf("result[%d] = %s, want %s", i, related[i].Photo.ID, id)
				}
			}
		})
	}
}

func TestPhotoRepository_TransitionEnrichment(t *testing.T) {
	db := newTestDB(t)
	photos := NewPhotoRepository(db)
	ctx := context.Background()

	photo := createPhoto(t, photos, models.PhotoStatusPublished)
	if photo.EnrichmentStatus != "" && photo.EnrichmentStatus != models.EnrichmentUnprocessed {
		t.Fatalf("unexpected initial status %q", photo.EnrichmentStatus)
	}

	steps := []models.EnrichmentStatus{models.EnrichmentScheduled, models.EnrichmentProcessing, models.EnrichmentEnriched}
	prev := models.EnrichmentUnprocessed
	for _, to := range steps {
		from, err := photos.TransitionEnrichment(ctx, photo.ID, to, "")
		if err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
		if from != prev {
			t.Errorf("transition to %s reported from=%s, want %s", to, from, prev)
		}
		prev = to
	}

	stored, err := photos.GetByID(ctx, photo.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.EnrichmentStatus != models.EnrichmentEnriched {
		t.Errorf("status = %s, want enriched", stored.EnrichmentStatus)
	}

	log, err := photos.GetTransitions(ctx, photo.ID)
	if err != nil {
		t.Fatalf("GetTransitions: %v", err)
	}
	if len(log) != len(steps) {
		t.Fatalf("got %d transitions, want %d", len(log), len(steps))
	}

	if _, err := photos.TransitionEnrichment(ctx, uuid.New(), models.EnrichmentScheduled, ""); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("unknown photo: err = %v, want ErrNotFound", err)
	}
}

func TestPhotoRepository_ClaimEnrichment(t *testing.T) {
	db := newTestDB(t)
	photos := NewPhotoRepository(db)
	ctx := context.Background()

	photo := createPhoto(t, photos, models.PhotoStatusPublished)
	if _, err := photos.TransitionEnrichment(ctx, photo.ID, models.EnrichmentScheduled, "queued"); err != nil {
		t.Fatal(err)
	}

	claimed, err := photos.ClaimEnrichment(ctx, photo.ID, models.EnrichmentScheduled, models.EnrichmentProcessing, "started")
	if err != nil || !claimed {
		t.Fatalf("first claim = %v, %v", claimed, err)
	}
	claimed, err = photos.ClaimEnrichment(ctx, photo.ID, models.EnrichmentScheduled, models.EnrichmentProcessing, "started")
	if err != nil || claimed {
		t.Fatalf("second claim = %v, %v, want false", claimed, err)
	}

	log, _ := photos.GetTransitions(ctx, photo.ID)
	if len(log) != 2 {
		t.Errorf("transitions = %d, want 2 (losing claim must not log)", len(log))
	}

	if claimed, err := photos.ClaimEnrichment(ctx, uuid.New(), models.EnrichmentScheduled, models.EnrichmentProcessing, ""); err != nil || claimed {
		t.Errorf("unknown photo claim = %v, %v", claimed, err)
	}
}

func TestPhotoRepository_GetStale(t *testing.T) {
	db := newTestDB(t)
	photos := NewPhotoRepository(db)
	ctx := context.Background()

	stuck := createPhoto(t, photos, models.PhotoStatusPublished)
	if _, err := photos.TransitionEnrichment(ctx, stuck.ID, models.EnrichmentProcessing, ""); err != nil {
		t.Fatalf("transition: %v", err)
	}

	found, err := photos.GetStale(ctx, models.EnrichmentProcessing, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("GetStale: %v", err)
	}
	if len(found) != 1 || found[0].ID != stuck.ID {
		t.Errorf("found = %+v, want the processing photo", found)
	}

	found, err = photos.GetStale(ctx, models.EnrichmentProcessing, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetStale: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected no stuck photos before the threshold, got %d", len(found))
	}

	found, err = photos.GetStale(ctx, models.EnrichmentScheduled, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("GetStale: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("no photo is scheduled, got %d", len(found))
	}
}

func TestPhotoRepository_GooglePhotosMediaIDIsUnique(t *testing.T) {
	db := newTestDB(t)
	photos := NewPhotoRepository(db)
	ctx := context.Background()

	mediaID := "media-1"
	first := &models.Photo{AttachmentID: uuid.New(), Status: models.PhotoStatusPublished, GooglePhotosMediaID: &mediaID}
	if err := photos.Create(ctx, first); err != nil {
		t.Fatalf("first create: %v", err)
	}
	second := &models.Photo{AttachmentID: uuid.New(), Status: models.PhotoStatusPublished, GooglePhotosMediaID: &mediaID}
	if err := photos.Create(ctx, second); err == nil {
		t.Fatal("expected unique violation for repeated media id")
	}

	found, err := photos.GetByGooglePhotosMediaID(ctx, mediaID)
	if err != nil {
		t.Fatalf("GetByGooglePhotosMediaID: %v", err)
	}
	if found.ID != first.ID {
		t.Errorf("found %s, want %s", found.ID, first.ID)
	}

	if _, err := photos.GetByGooglePhotosMediaID(ctx, "missing"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("missing media id: err = %v, want ErrNotFound", err)
	}
}

func TestPhotoRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	photos := NewPhotoRepository(db)
	tags := NewTagRepository(db)
	faces := NewFaceRepository(db)
	categories := NewCategoryRepository(db)
	views := NewViewRepository(db)
	ctx := context.Background()

	photo := createPhoto(t, photos, models.PhotoStatusPublished)
	addTags(t, tags, photo.ID, "dog")
	if err := faces.CreateBatch(ctx, []*models.Face{{PhotoID: photo.ID, FaceID: "face_1"}}); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	category := &models.Category{Name: "Trips", Slug: "trips"}
	if err := categories.Create(ctx, category); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if err := photos.AttachCategory(ctx, photo.ID, category.ID); err != nil {
		t.Fatalf("AttachCategory: %v", err)
	}
	if _, err := views.Increment(ctx, photo.ID); err != nil {
		t.Fatalf("Increment: %v", err)
	}

	if err := photos.Delete(ctx, photo.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := photos.GetByID(ctx, photo.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("photo still present: %v", err)
	}
	remainingTags, _ := tags.GetByPhoto(ctx, photo.ID)
	remainingFaces, _ := faces.GetByPhoto(ctx, photo.ID)
	if len(remainingTags) != 0 || len(remainingFaces) != 0 {
		t.Errorf("expected tags and faces removed, got %d tags %d faces", len(remainingTags), len(remainingFaces))
	}
	if linked, _ := photos.HasCategory(ctx, photo.ID, category.ID); linked {
		t.Error("category link survived delete")
	}
	if count, _ := views.Get(ctx, photo.ID); count != 0 {
		t.Errorf("view count = %d after delete", count)
	}

	if err := photos.Delete(ctx, photo.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestPhotoRepository_AttachCategoryIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	photos := NewPhotoRepository(db)
	categories := NewCategoryRepository(db)
	ctx := context.Background()

	photo := createPhoto(t, photos, models.PhotoStatusPublished)
	people := &models.Category{Name: models.PeopleCategoryName, Slug: models.PeopleCategorySlug}
	if err := categories.Create(ctx, people); err != nil {
		t.Fatalf("create category: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := photos.AttachCategory(ctx, photo.ID, people.ID); err != nil {
			t.Fatalf("AttachCategory #%d: %v", i+1, err)
		}
	}

	stored, err := photos.GetByID(ctx, photo.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(stored.Categories) != 1 {
		t.Errorf("categories = %d, want 1", len(stored.Categories))
	}

	list, total, err := photos.List(ctx, repositories.PhotoFilter{CategoryID: &people.ID}, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Errorf("List by category: total=%d len=%d, want 1", total, len(list))
	}
}

func TestFaceRepository_ListPeople(t *testing.T) {
	db := newTestDB(t)
	photos := NewPhotoRepository(db)
	faces := NewFaceRepository(db)
	ctx := context.Background()

	photo := createPhoto(t, photos, models.PhotoStatusPublished)
	alice := "Alice"
	bob := "Bob"
	empty := ""
	batch := []*models.Face{
		{PhotoID: photo.ID, FaceID: "face_a", PersonName: &alice},
		{PhotoID: photo.ID, FaceID: "face_a", PersonName: &alice},
		{PhotoID: photo.ID, FaceID: "face_b", PersonName: &bob},
		{PhotoID: photo.ID, FaceID: "face_c", PersonName: &empty},
		{PhotoID: photo.ID, FaceID: "face_d"},
	}
	if err := faces.CreateBatch(ctx, batch); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	people, err := faces.ListPeople(ctx)
	if err != nil {
		t.Fatalf("ListPeople: %v", err)
	}
	if len(people) != 2 {
		t.Fatalf("people = %+v, want 2 rows", people)
	}
	if people[0].PersonName != "Alice" || people[0].PhotoCount != 2 {
		t.Errorf("first row = %+v, want Alice with 2", people[0])
	}

	carol := "Carol"
	if err := faces.UpdatePersonName(ctx, batch[4].ID, &carol); err != nil {
		t.Fatalf("UpdatePersonName: %v", err)
	}
	updated, err := faces.GetByID(ctx, batch[4].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.PersonName == nil || *updated.PersonName != "Carol" {
		t.Errorf("person name = %v, want Carol", updated.PersonName)
	}
}

func TestSettingRepository_SetOverwrites(t *testing.T) {
	db := newTestDB(t)
	settings := NewSettingRepository(db)
	ctx := context.Background()

	if _, ok, err := settings.Get(ctx, "api_provider"); err != nil || ok {
		t.Fatalf("unset key: ok=%v err=%v", ok, err)
	}

	if err := settings.Set(ctx, "api_provider", "google"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := settings.Set(ctx, "api_provider", "aws"); err != nil {
		t.Fatalf("Set again: %v", err)
	}

	value, ok, err := settings.Get(ctx, "api_provider")
	if err != nil || !ok || value != "aws" {
		t.Errorf("Get = %q ok=%v err=%v, want aws", value, ok, err)
	}

	all, err := settings.All(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("All = %+v err=%v, want one row", all, err)
	}
}

func TestOAuthCredentialRepository_SaveAndClear(t *testing.T) {
	db := newTestDB(t)
	creds := NewOAuthCredentialRepository(db)
	ctx := context.Background()

	empty, err := creds.Get(ctx)
	if err != nil {
		t.Fatalf("Get on empty store: %v", err)
	}
	if empty.AccessToken != "" || empty.RefreshToken != "" {
		t.Errorf("expected empty credential, got %+v", empty)
	}

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := creds.Save(ctx, &models.OAuthCredential{
		ClientID:     "client",
		ClientSecret: "secret",
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       &expiry,
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stored, err := creds.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.AccessToken != "access" || stored.RefreshToken != "refresh" || stored.ClientID != "client" {
		t.Errorf("stored = %+v", stored)
	}

	if err := creds.ClearTokens(ctx); err != nil {
		t.Fatalf("ClearTokens: %v", err)
	}
	cleared, err := creds.Get(ctx)
	if err != nil {
		t.Fatalf("Get after clear: %v", err)
	}
	if cleared.AccessToken != "" || cleared.RefreshToken != "" {
		t.Errorf("tokens not cleared: %+v", cleared)
	}
	if cleared.ClientID != "client" {
		t.Errorf("client id should survive disconnect, got %q", cleared.ClientID)
	}
}

func TestAlbumMappingRepository_ListingKeepsCategory(t *testing.T) {
	db := newTestDB(t)
	albums := NewAlbumMappingRepository(db)
	ctx := context.Background()

	categoryID := uuid.New()
	now := time.Now()
	if err := albums.SetCategory(ctx, "album-1", "Holiday", categoryID, now); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}

	if err := albums.SaveListing(ctx, []models.AlbumMapping{
		{AlbumID: "album-1", Title: "Holiday 2024", MediaItemsCount: 12, SyncedAt: now},
		{AlbumID: "album-2", Title: "Garden", MediaItemsCount: 3, SyncedAt: now},
	}); err != nil {
		t.Fatalf("SaveListing: %v", err)
	}

	mapping, err := albums.GetByAlbumID(ctx, "album-1")
	if err != nil {
		t.Fatalf("GetByAlbumID: %v", err)
	}
	if mapping.CategoryID == nil || *mapping.CategoryID != categoryID {
		t.Errorf("category link lost: %+v", mapping)
	}
	if mapping.Title != "Holiday 2024" || mapping.MediaItemsCount != 12 {
		t.Errorf("listing not refreshed: %+v", mapping)
	}

	mapped, err := albums.ListMapped(ctx)
	if err != nil || len(mapped) != 1 {
		t.Errorf("ListMapped = %+v err=%v, want 1", mapped, err)
	}
}

func TestViewRepository_Increment(t *testing.T) {
	db := newTestDB(t)
	views := NewViewRepository(db)
	ctx := context.Background()
	photoID := uuid.New()

	for want := int64(1); want <= 3; want++ {
		got, err := views.Increment(ctx, photoID)
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if got != want {
			t.Errorf("count = %d, want %d", got, want)
		}
	}
}

func TestPhotoRepository_Search(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	photos := NewPhotoRepository(db)
	tags := NewTagRepository(db)
	keywords := NewKeywordRepository(db)
	categories := NewCategoryRepository(db)

	created := time.Now().Add(-time.Hour)
	create := func(photo *models.Photo) *models.Photo {
		created = created.Add(time.Minute)
		photo.AttachmentID = uuid.New()
		photo.CreatedAt = created
		if err := photos.Create(ctx, photo); err != nil {
			t.Fatal(err)
		}
		return photo
	}

	beach := create(&models.Photo{Status: models.PhotoStatusPublished, Title: "Beach day", EventDate: "2024-07-01"})
	addTags(t, tags, beach.ID, "Sand")
	sunset, err := keywords.FirstOrCreate(ctx, "sunset")
	if err != nil {
		t.Fatal(err)
	}
	if err := photos.AttachKeyword(ctx, beach.ID, sunset.ID); err != nil {
		t.Fatal(err)
	}

	graduation := create(&models.Photo{Status: models.PhotoStatusPublished, Title: "Graduation", EventDate: "2024-05-10", EventDateEnd: "2024-05-12"})
	tags.CreateIfAbsent(ctx, &models.Tag{PhotoID: graduation.ID, Name: "ceremony", Type: models.TagTypeManual})
	events := &models.Category{Name: "Events", Slug: "events"}
	if err := categories.Create(ctx, events); err != nil {
		t.Fatal(err)
	}
	photos.AttachCategory(ctx, graduation.ID, events.ID)

	create(&models.Photo{Status: models.PhotoStatusDraft, Title: "Beach draft", EventDate: "2024-07-01"})
	fun := create(&models.Photo{Status: models.PhotoStatusPublished, Title: "100% fun"})

	tests := []struct {
		name  string
		query repositories.PhotoSearch
		want  []uuid.UUID
	}{
		{"title ignores case and drafts", repositories.PhotoSearch{Text: "BEACH"}, []uuid.UUID{beach.ID}},
		{"keyword", repositories.PhotoSearch{Text: "sunset"}, []uuid.UUID{beach.ID}},
		{"tag name substring", repositories.PhotoSearch{Text: "cerem"}, []uuid.UUID{graduation.ID}},
		{"wildcards are literal", repositories.PhotoSearch{Text: "%"}, []uuid.UUID{fun.ID}},
		{"category", repositories.PhotoSearch{CategoryID: &events.ID}, []uuid.UUID{graduation.ID}},
		{"text and category", repositories.PhotoSearch{Text: "beach", CategoryID: &events.ID}, nil},
		{"range overlaps event end", repositories.PhotoSearch{DateFrom: "2024-05-11", DateTo: "2024-05-31"}, []uuid.UUID{graduation.ID}},
		{"from only", repositories.PhotoSearch{DateFrom: "2024-06-01"}, []uuid.UUID{beach.ID}},
		{"to only skips undated", repositories.PhotoSearch{DateTo: "2024-06-01"}, []uuid.UUID{graduation.ID}},
		{"any tag name", repositories.PhotoSearch{Tags: []string{"SAND", "nothing"}}, []uuid.UUID{beach.ID}},
		{"no filters", repositories.PhotoSearch{}, []uuid.UUID{fun.ID, graduation.ID, beach.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := photos.Search(ctx, tt.query, 0, 10)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if total != int64(len(tt.want)) || len(got) != len(tt.want) {
				t.Fatalf("got %d photos (total %d), want %d", len(got), total, len(tt.want))
			}
			for i, photo := range got {
				if photo.ID != tt.want[i] {
					t.Errorf("result %d = %q, want %s", i, photo.Title, tt.want[i])
				}
			}
		})
	}

	page, total, _ := photos.Search(ctx, repositories.PhotoSearch{}, 2, 2)
	if total != 3 || len(page) != 1 || page[0].ID != beach.ID {
		t.Errorf("second page = %d photos, total %d", len(page), total)
	}
}

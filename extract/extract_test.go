package extract

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"coursemerge/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "src.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

func collect(t *testing.T, fn ExtractFunc, db *gorm.DB) []models.CourseRecord {
	t.Helper()
	var recs []models.CourseRecord
	err := fn(db, zap.NewNop(), func(rec models.CourseRecord) error {
		recs = append(recs, rec)
		return nil
	})
	require.NoError(t, err)
	return recs
}

func createEdxSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE courses (
			id TEXT PRIMARY KEY, title TEXT, description TEXT, subject TEXT,
			level TEXT, language TEXT, weeks_to_complete INTEGER,
			availability TEXT, marketing_url TEXT, card_image_url TEXT)`,
		`CREATE TABLE tags (id INTEGER PRIMARY KEY AUTOINCREMENT, course_id TEXT, tag TEXT)`,
		`CREATE TABLE skills (id INTEGER PRIMARY KEY AUTOINCREMENT, course_id TEXT, skill TEXT, category TEXT, subcategory TEXT)`,
		`CREATE TABLE staff (id INTEGER PRIMARY KEY AUTOINCREMENT, course_id TEXT, staff_key TEXT)`,
		`CREATE TABLE owners (id INTEGER PRIMARY KEY AUTOINCREMENT, course_id TEXT, name TEXT)`,
	}
	for _, s := range stmts {
		require.NoError(t, db.Exec(s).Error)
	}
}

func TestExtractEdxMinimal(t *testing.T) {
	db := openTestDB(t)
	createEdxSchema(t, db)
	require.NoError(t, db.Exec(`INSERT INTO courses VALUES
		('e1','EdX Title','Desc','CS','Introductory','English',8,'Available','http://x','http://i')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO tags(course_id, tag) VALUES ('e1','AI'), ('e1','ML'), ('e1','ai')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO skills(course_id, skill, category, subcategory) VALUES ('e1','Python','Prog','Lang')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO staff(course_id, staff_key) VALUES ('e1','prof_x')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO owners(course_id, name) VALUES ('e1','MITx')`).Error)

	recs := collect(t, ExtractEdx, db)
	require.Len(t, recs, 1)
	rec := recs[0]
	require.Equal(t, string(SourceEdx), rec.Source)
	require.Equal(t, "e1", rec.SourceCourseID)
	require.Equal(t, "EdX Title", *rec.Title)
	require.Equal(t, "Desc", *rec.Description)
	require.Equal(t, "CS", *rec.Subject)
	require.Equal(t, "beginner", *rec.Level)
	require.Equal(t, "English", *rec.Language)
	require.Equal(t, 8, *rec.DurationWeeks)
	require.Equal(t, "http://x", *rec.URL)
	require.Equal(t, "http://i", *rec.ImageURL)
	require.Equal(t, []string{"AI", "ML"}, rec.Tags)
	require.Equal(t, []string{"Python"}, rec.Skills)
	require.Equal(t, []string{"prof_x"}, rec.Instructors)
	require.Equal(t, "MITx", *rec.Provider)
	require.Equal(t, "Available", rec.Extra["availability"])
}

func TestExtractEdxMissingSideTables(t *testing.T) {
	db := openTestDB(t)
	// nur die Kurstabelle, keine Seitentabellen
	require.NoError(t, db.Exec(`CREATE TABLE courses (
		id TEXT PRIMARY KEY, title TEXT, description TEXT, subject TEXT,
		level TEXT, language TEXT, weeks_to_complete INTEGER,
		availability TEXT, marketing_url TEXT, card_image_url TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO courses VALUES
		('e2','Bare Course',NULL,NULL,NULL,NULL,NULL,NULL,NULL,NULL)`).Error)

	recs := collect(t, ExtractEdx, db)
	require.Len(t, recs, 1)
	rec := recs[0]
	// leere Listen, niemals nil
	require.NotNil(t, rec.Tags)
	require.Empty(t, rec.Tags)
	require.NotNil(t, rec.Skills)
	require.Empty(t, rec.Skills)
	require.NotNil(t, rec.Instructors)
	require.Empty(t, rec.Instructors)
	require.Nil(t, rec.Provider)
	require.Nil(t, rec.Level)
	require.Nil(t, rec.DurationWeeks)
}

func TestExtractCourseraMinimal(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE coursera_courses (
		id TEXT PRIMARY KEY, name TEXT, url TEXT, product_type TEXT,
		partners_json TEXT, skills_json TEXT, rating REAL, num_ratings INTEGER,
		difficulty TEXT, duration TEXT, tagline TEXT, fetched_at TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO coursera_courses VALUES
		('c1','Title','/course','course','["Partner"]','["Python","ML"]',4.6,123,'Beginner','6 weeks','Great course','2025-01-01')`).Error)

	recs := collect(t, ExtractCoursera, db)
	require.Len(t, recs, 1)
	rec := recs[0]
	require.Equal(t, string(SourceCoursera), rec.Source)
	require.Equal(t, "c1", rec.SourceCourseID)
	require.Equal(t, "Title", *rec.Title)
	require.Equal(t, "Great course", *rec.Description)
	require.Equal(t, "Partner", *rec.Provider)
	require.Equal(t, []string{"Python", "ML"}, rec.Skills)
	require.Equal(t, "beginner", *rec.Level)
	require.Equal(t, 6, *rec.DurationWeeks)
	require.InDelta(t, 4.6, *rec.Rating, 0.001)
	require.Equal(t, 123, *rec.RatingsCount)
	require.NotNil(t, rec.Tags)
	require.Empty(t, rec.Tags)
	require.Equal(t, "course", rec.Extra["product_type"])
}

func TestExtractCourseraColumnAliases(t *testing.T) {
	// Ältere Scraper-Läufe haben numProductRatings/productDuration geschrieben.
	db := openTestDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE coursera_courses (
		id TEXT PRIMARY KEY, name TEXT, url TEXT, product_type TEXT,
		partners_json TEXT, skills_json TEXT, rating REAL, numProductRatings INTEGER,
		difficulty TEXT, productDuration TEXT, tagline TEXT, fetched_at TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO coursera_courses VALUES
		('c2','Alias Course',NULL,NULL,NULL,NULL,NULL,77,NULL,'2-4 weeks',NULL,NULL)`).Error)

	recs := collect(t, ExtractCoursera, db)
	require.Len(t, recs, 1)
	require.Equal(t, 77, *recs[0].RatingsCount)
	require.Equal(t, 4, *recs[0].DurationWeeks)
}

func TestExtractCourseraMissingTable(t *testing.T) {
	db := openTestDB(t)
	err := ExtractCoursera(db, zap.NewNop(), func(models.CourseRecord) error { return nil })
	require.Error(t, err)
}

func TestExtractNptelMinimal(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE courses (
		course_id TEXT PRIMARY KEY, title TEXT, institute TEXT, professor TEXT,
		content_type TEXT, discipline_id TEXT, current_run INTEGER,
		self_paced INTEGER, url TEXT, scraped INTEGER, last_updated TEXT)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE course_metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT, course_id TEXT, lesson_number INTEGER,
		lesson_title TEXT, concepts_json TEXT, raw_concepts_text TEXT, fetched_at TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO courses VALUES
		('n1','NPTEL Course','IIT','Prof A','video','ME',1,1,'http://nptel',0,'2025-01-01')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO course_metadata (course_id, lesson_number, lesson_title, concepts_json, raw_concepts_text, fetched_at)
		VALUES ('n1',1,'L1','["thermodynamics","cycles"]','heat; work','2025-01-02')`).Error)

	recs := collect(t, ExtractNptel, db)
	require.Len(t, recs, 1)
	rec := recs[0]
	require.Equal(t, string(SourceNptel), rec.Source)
	require.Equal(t, "n1", rec.SourceCourseID)
	require.Equal(t, "IIT", *rec.Provider)
	require.Equal(t, []string{"Prof A"}, rec.Instructors)
	require.Equal(t, "ME", *rec.Subject)
	require.Equal(t, []string{"thermodynamics", "cycles", "heat", "work"}, rec.Tags)
	require.NotNil(t, rec.Skills)
	require.Empty(t, rec.Skills)
}

func TestExtractNptelMissingMetadata(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE courses (
		course_id TEXT PRIMARY KEY, title TEXT, institute TEXT, professor TEXT,
		content_type TEXT, discipline_id TEXT, current_run INTEGER,
		self_paced INTEGER, url TEXT, scraped INTEGER, last_updated TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO courses VALUES
		('n2','No Meta','IIT',NULL,NULL,NULL,NULL,NULL,NULL,0,NULL)`).Error)

	recs := collect(t, ExtractNptel, db)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].Tags)
	require.Empty(t, recs[0].Tags)
	require.NotNil(t, recs[0].Instructors)
	require.Empty(t, recs[0].Instructors)
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource(" EdX ")
	require.NoError(t, err)
	require.Equal(t, SourceEdx, src)

	_, err = ParseSource("udemy")
	require.Error(t, err)
}

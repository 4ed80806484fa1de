package scoring

import (
	"testing"

	"github.com/sportarr/sportarr/internal/indexer/types"
	"github.com/sportarr/sportarr/internal/quality"
)

func testRelease(title string, sizeGB int64) types.ReleaseInfo {
	return types.ReleaseInfo{
		GUID:        "guid-" + title,
		Title:       title,
		DownloadURL: "https://indexer.example/dl",
		Size:        sizeGB << 30,
		Protocol:    types.ProtocolTorrent,
		Seeders:     25,
	}
}

func TestEvaluateApproves(t *testing.T) {
	profile := quality.DefaultProfile()
	eval := NewEvaluator(&profile, nil).Evaluate(testRelease("UFC.300.2024.04.13.1080p.WEB-DL.x264-GROUP", 4))

	if !eval.Approved {
		t.Fatalf("expected approval, rejections: %v", eval.Rejections)
	}
	if eval.Quality.Name != "WEBDL-1080p" {
		t.Errorf("quality = %s", eval.Quality.Name)
	}
	if eval.TotalScore != eval.Quality.Score() {
		t.Errorf("score = %d, want quality score %d", eval.TotalScore, eval.Quality.Score())
	}
}

func TestEvaluateQualityScoresAreMonotonic(t *testing.T) {
	profile := quality.DefaultProfile()
	evaluator := NewEvaluator(&profile, nil)

	// Titles in ascending quality order must produce ascending scores.
	titles := []string{
		"UFC.300.SDTV.x264-GROUP",
		"UFC.300.720p.HDTV.x264-GROUP",
		"UFC.300.1080p.WEB-DL.x264-GROUP",
		"UFC.300.2160p.Bluray.Remux.x264-GROUP",
	}

	prev := -1
	for _, title := range titles {
		eval := evaluator.Evaluate(testRelease(title, 4))
		if eval.TotalScore <= prev {
			t.Errorf("%q scored %d, not above previous %d", title, eval.TotalScore, prev)
		}
		prev = eval.TotalScore
	}
}

func TestEvaluateRejectsDisallowedQuality(t *testing.T) {
	profile := quality.HD1080pProfile()
	eval := NewEvaluator(&profile, nil).Evaluate(testRelease("UFC.300.SDTV.x264-GROUP", 1))

	if eval.Approved {
		t.Fatal("SDTV should be rejected by the HD profile")
	}
	// Score is still computed for reporting.
	if eval.TotalScore == 0 {
		t.Error("rejected release should keep its score")
	}
}

func TestEvaluateRejectsUnknownQuality(t *testing.T) {
	profile := quality.DefaultProfile()
	eval := NewEvaluator(&profile, nil).Evaluate(testRelease("Some Random Broadcast", 1))

	if eval.Approved {
		t.Fatal("unparseable quality should be rejected")
	}
	if eval.QualityMatched {
		t.Error("quality should not match")
	}
}

func TestEvaluateRejectsSizeOutOfBounds(t *testing.T) {
	profile := quality.DefaultProfile()
	profile.MinSizeMB = 2048

	evaluator := NewEvaluator(&profile, nil)

	small := evaluator.Evaluate(testRelease("UFC.300.1080p.WEB-DL.x264-GROUP", 1))
	if small.Approved {
		t.Error("1 GB release should be rejected below the 2 GB minimum")
	}

	large := evaluator.Evaluate(testRelease("UFC.300.1080p.WEB-DL.x264-GROUP", 4))
	if !large.Approved {
		t.Errorf("4 GB release should pass, rejections: %v", large.Rejections)
	}
}

func TestEvaluateRejectsZeroSeederTorrent(t *testing.T) {
	profile := quality.DefaultProfile()
	evaluator := NewEvaluator(&profile, nil)

	dead := testRelease("UFC.300.1080p.WEB-DL.x264-GROUP", 4)
	dead.Seeders = 0
	eval := evaluator.Evaluate(dead)
	if eval.Approved {
		t.Error("zero-seeder torrent should be rejected")
	}
	found := false
	for _, rejection := range eval.Rejections {
		if rejection == "torrent has no seeders" {
			found = true
		}
	}
	if !found {
		t.Errorf("rejections = %v, want a seeder rejection", eval.Rejections)
	}

	// Usenet releases carry no seeder count and are unaffected.
	nzb := testRelease("UFC.300.1080p.WEB-DL.x264-GROUP", 4)
	nzb.Protocol = types.ProtocolUsenet
	nzb.Seeders = 0
	if eval := evaluator.Evaluate(nzb); !eval.Approved {
		t.Errorf("usenet release rejected: %v", eval.Rejections)
	}
}

func TestEvaluateCustomFormats(t *testing.T) {
	hevc, err := quality.NewCustomFormat(1, "HEVC", quality.Specification{
		Name: "x265", Kind: quality.SpecReleaseTitle, Pattern: `x265|hevc`,
	})
	if err != nil {
		t.Fatal(err)
	}
	badGroup, err := quality.NewCustomFormat(2, "Banned Group", quality.Specification{
		Name: "group", Kind: quality.SpecReleaseTitle, Pattern: `-BADGRP$`,
	})
	if err != nil {
		t.Fatal(err)
	}

	profile := quality.DefaultProfile()
	profile.FormatScores = map[int64]int{1: 50, 2: -200}
	evaluator := NewEvaluator(&profile, []*quality.CustomFormat{hevc, badGroup})

	eval := evaluator.Evaluate(testRelease("UFC.300.1080p.WEB-DL.x265-GROUP", 4))
	if eval.FormatScore != 50 {
		t.Errorf("format score = %d, want 50", eval.FormatScore)
	}
	if len(eval.MatchedFormats) != 1 || eval.MatchedFormats[0] != "HEVC" {
		t.Errorf("matched formats = %v", eval.MatchedFormats)
	}
	if eval.TotalScore != eval.QualityScore+50 {
		t.Errorf("total = %d, want quality+format", eval.TotalScore)
	}

	penalized := evaluator.Evaluate(testRelease("UFC.300.1080p.WEB-DL.x264-BADGRP", 4))
	if penalized.FormatScore != -200 {
		t.Errorf("format score = %d, want -200", penalized.FormatScore)
	}
}

func TestEvaluateMinFormatScore(t *testing.T) {
	hevc, err := quality.NewCustomFormat(1, "HEVC", quality.Specification{
		Name: "x265", Kind: quality.SpecReleaseTitle, Pattern: `x265|hevc`,
	})
	if err != nil {
		t.Fatal(err)
	}

	profile := quality.DefaultProfile()
	profile.FormatScores = map[int64]int{1: 50}
	profile.MinFormatScore = 50
	evaluator := NewEvaluator(&profile, []*quality.CustomFormat{hevc})

	without := evaluator.Evaluate(testRelease("UFC.300.1080p.WEB-DL.x264-GROUP", 4))
	if without.Approved {
		t.Error("release below the minimum format score should be rejected")
	}

	with := evaluator.Evaluate(testRelease("UFC.300.1080p.WEB-DL.x265-GROUP", 4))
	if !with.Approved {
		t.Errorf("release meeting the minimum should pass, rejections: %v", with.Rejections)
	}
}

func TestEvaluateAllSortsByScore(t *testing.T) {
	profile := quality.DefaultProfile()
	evaluator := NewEvaluator(&profile, nil)

	evals := evaluator.EvaluateAll([]types.ReleaseInfo{
		testRelease("UFC.300.720p.HDTV.x264-A", 2),
		testRelease("UFC.300.2160p.WEB-DL.x264-B", 8),
		testRelease("UFC.300.1080p.WEB-DL.x264-C", 4),
	})

	if len(evals) != 3 {
		t.Fatalf("got %d evaluations", len(evals))
	}
	for i := 1; i < len(evals); i++ {
		if evals[i].TotalScore > evals[i-1].TotalScore {
			t.Errorf("evaluations not sorted: %d before %d", evals[i-1].TotalScore, evals[i].TotalScore)
		}
	}
	if evals[0].Release.Title != "UFC.300.2160p.WEB-DL.x264-B" {
		t.Errorf("best = %q", evals[0].Release.Title)
	}
}

func TestIsUpgrade(t *testing.T) {
	profile := quality.DefaultProfile()
	evaluator := NewEvaluator(&profile, nil)

	eval := evaluator.Evaluate(testRelease("UFC.300.1080p.WEB-DL.x264-GROUP", 4))
	if !eval.Approved {
		t.Fatalf("setup: %v", eval.Rejections)
	}

	hdtv720, _ := quality.GetQualityByName("HDTV-720p")
	if !evaluator.IsUpgrade(&eval, hdtv720.ID) {
		t.Error("WEBDL-1080p should upgrade HDTV-720p")
	}

	remux4k, _ := quality.GetQualityByName("Remux-2160p")
	if evaluator.IsUpgrade(&eval, remux4k.ID) {
		t.Error("WEBDL-1080p should not upgrade Remux-2160p")
	}

	// Unknown current quality follows the profile's upgrade setting.
	if !evaluator.IsUpgrade(&eval, 0) {
		t.Error("unknown current quality should be upgradable when the profile allows upgrades")
	}
}

func TestIsUpgradeUnknownCurrentRespectsProfile(t *testing.T) {
	profile := quality.DefaultProfile()
	profile.UpgradesAllowed = false
	evaluator := NewEvaluator(&profile, nil)

	eval := evaluator.Evaluate(testRelease("UFC.300.1080p.WEB-DL.x264-GROUP", 4))
	if !eval.Approved {
		t.Fatalf("setup: %v", eval.Rejections)
	}
	if evaluator.IsUpgrade(&eval, 0) {
		t.Error("unknown current quality must not bypass a no-upgrades profile")
	}
}

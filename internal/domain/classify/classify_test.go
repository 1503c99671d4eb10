package classify_test

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/shalun/raidlogs/internal/domain/classify"
	"github.com/shalun/raidlogs/internal/domain/encounter"
	"github.com/shalun/raidlogs/internal/gamedata"
	. "github.com/smartystreets/goconvey/convey"
)

func testAnalyze() gamedata.Analyze {
	return gamedata.Analyze{
		ShameDeathsAmount:    10,
		MultipleTanksTrigger: 2,
		MultipleHealsTrigger: 2,
		TankAbnormals:        []int64{100200, 100201},
		P2WAbnormals:         []int64{70231, 70232},
	}
}

func testRegions() gamedata.RegionTable {
	return gamedata.RegionTable{26: "EU", 42: "NA"}
}

func member(class string, serverID int64, deaths int, buffs ...int64) encounter.Member {
	detail := make([]encounter.BuffRecord, 0, len(buffs))
	for _, id := range buffs {
		detail = append(detail, encounter.BuffRecord{
			json.RawMessage(strconv.FormatInt(id, 10)),
		})
	}
	return encounter.Member{
		PlayerClass:    class,
		PlayerServerID: serverID,
		PlayerDeaths:   deaths,
		BuffDetail:     detail,
	}
}

func payload(members ...encounter.Member) *encounter.Payload {
	return &encounter.Payload{Members: members}
}

func TestRunShame(t *testing.T) {
	Convey("Given the shame death threshold", t, func() {
		Convey("When roster deaths reach the threshold", func() {
			p := payload(
				member("Warrior", 26, 4),
				member("Priest", 26, 3),
				member("Archer", 26, 3),
			)
			res := classify.Run(p, 0, testAnalyze(), testRegions())
			So(res.IsShame, ShouldBeTrue)
		})

		Convey("When roster deaths stay below the threshold", func() {
			p := payload(
				member("Warrior", 26, 4),
				member("Priest", 26, 3),
				member("Archer", 26, 2),
			)
			res := classify.Run(p, 0, testAnalyze(), testRegions())
			So(res.IsShame, ShouldBeFalse)
		})
	})
}

func TestRunTankCounting(t *testing.T) {
	Convey("Given the tank counting rules", t, func() {
		Convey("When two anchor tanks are present", func() {
			p := payload(
				member("Lancer", 26, 0),
				member("Lancer", 26, 0),
				member("Priest", 26, 0),
			)
			res := classify.Run(p, 0, testAnalyze(), testRegions())
			So(res.IsMultipleTanks, ShouldBeTrue)
		})

		Convey("When a controllable class shows a tank stance buff", func() {
			p := payload(
				member("Lancer", 26, 0),
				member("Warrior", 26, 0, 100200),
			)
			res := classify.Run(p, 0, testAnalyze(), testRegions())
			So(res.IsMultipleTanks, ShouldBeTrue)
		})

		Convey("When a controllable class shows no tank stance buff", func() {
			p := payload(
				member("Lancer", 26, 0),
				member("Warrior", 26, 0, 99999),
			)
			res := classify.Run(p, 0, testAnalyze(), testRegions())
			So(res.IsMultipleTanks, ShouldBeFalse)
		})
	})
}

func TestRunHealerCounting(t *testing.T) {
	Convey("Given the healer counting rules", t, func() {
		Convey("When the roster carries two healers", func() {
			p := payload(
				member("Priest", 26, 0),
				member("Mystic", 26, 0),
				member("Archer", 26, 0),
			)
			res := classify.Run(p, 0, testAnalyze(), testRegions())
			So(res.IsMultipleHeals, ShouldBeTrue)
		})

		Convey("When the roster carries a single healer", func() {
			p := payload(
				member("Priest", 26, 0),
				member("Archer", 26, 0),
			)
			res := classify.Run(p, 0, testAnalyze(), testRegions())
			So(res.IsMultipleHeals, ShouldBeFalse)
		})
	})
}

func TestRunP2W(t *testing.T) {
	Convey("Given the pay-to-win consumable rule", t, func() {
		Convey("When any member shows a p2w status effect", func() {
			p := payload(
				member("Archer", 26, 0, 12345),
				member("Slayer", 26, 0, 70232),
			)
			res := classify.Run(p, 0, testAnalyze(), testRegions())
			So(res.IsP2WConsums, ShouldBeTrue)
		})

		Convey("When no member shows a p2w status effect", func() {
			p := payload(
				member("Archer", 26, 0, 12345),
				member("Slayer", 26, 0, 54321),
			)
			res := classify.Run(p, 0, testAnalyze(), testRegions())
			So(res.IsP2WConsums, ShouldBeFalse)
		})
	})
}

func TestRunRegion(t *testing.T) {
	Convey("Given region derivation from the uploader", t, func() {
		p := payload(
			member("Archer", 26, 0),
			member("Slayer", 42, 0),
		)

		Convey("When the uploader is on a known server", func() {
			res := classify.Run(p, 1, testAnalyze(), testRegions())
			So(res.Region, ShouldEqual, "NA")
		})

		Convey("When the uploader is on an unknown server", func() {
			p.Members[0].PlayerServerID = 555
			res := classify.Run(p, 0, testAnalyze(), testRegions())
			So(res.Region, ShouldEqual, "")
		})

		Convey("When the uploader index is outside the roster", func() {
			res := classify.Run(p, 7, testAnalyze(), testRegions())
			So(res.Region, ShouldEqual, "")
		})
	})
}

package roles_test

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/shalun/raidlogs/internal/domain/encounter"
	"github.com/shalun/raidlogs/internal/domain/roles"
	"github.com/shalun/raidlogs/internal/gamedata"
	. "github.com/smartystreets/goconvey/convey"
)

func testAnalyze() gamedata.Analyze {
	return gamedata.Analyze{
		RoleTypes: map[gamedata.Class]gamedata.RoleRule{
			gamedata.Warrior: {
				Default:      "dps",
				AltAbnormals: []int64{100200, 100201},
				AltLabel:     "tank",
			},
			gamedata.Brawler: {
				Default:      "tank",
				AltAbnormals: []int64{10153040},
				AltLabel:     "dps",
			},
		},
	}
}

func member(class string, buffs ...int64) encounter.Member {
	detail := make([]encounter.BuffRecord, 0, len(buffs))
	for _, id := range buffs {
		detail = append(detail, encounter.BuffRecord{
			json.RawMessage(strconv.FormatInt(id, 10)),
		})
	}
	return encounter.Member{PlayerClass: class, BuffDetail: detail}
}

func TestResolve(t *testing.T) {
	Convey("Given a roster with controllable and fixed-role classes", t, func() {
		members := []encounter.Member{
			member("Warrior", 100200),
			member("Warrior", 55555),
			member("Brawler", 10153040),
			member("Brawler", 55555),
			member("Priest", 55555),
			member("Lancer"),
		}

		resolved := roles.Resolve(members, testAnalyze())

		Convey("Then every member keeps its slot", func() {
			So(len(resolved), ShouldEqual, len(members))
			So(resolved[0].PlayerClass, ShouldEqual, "Warrior")
			So(resolved[5].PlayerClass, ShouldEqual, "Lancer")
		})

		Convey("Then a controllable member with the stance buff gets the alternate label", func() {
			So(resolved[0].RoleType, ShouldEqual, "tank")
			So(resolved[2].RoleType, ShouldEqual, "dps")
		})

		Convey("Then a controllable member without the stance buff gets the default label", func() {
			So(resolved[1].RoleType, ShouldEqual, "dps")
			So(resolved[3].RoleType, ShouldEqual, "tank")
		})

		Convey("Then fixed-role classes stay unlabeled", func() {
			So(resolved[4].RoleType, ShouldEqual, "")
			So(resolved[5].RoleType, ShouldEqual, "")
		})

		Convey("Then the input roster is not mutated", func() {
			So(members[0].BuffDetail, ShouldNotBeNil)
			So(members[0].PlayerClass, ShouldEqual, "Warrior")
		})
	})

	Convey("Given a controllable class with no configured rule", t, func() {
		members := []encounter.Member{member("Berserker", 401705)}
		resolved := roles.Resolve(members, testAnalyze())

		Convey("Then it passes through without a label", func() {
			So(resolved[0].RoleType, ShouldEqual, "")
		})
	})

	Convey("Given an empty roster", t, func() {
		resolved := roles.Resolve(nil, testAnalyze())

		Convey("Then resolution returns an empty slice", func() {
			So(resolved, ShouldBeEmpty)
		})
	})
}

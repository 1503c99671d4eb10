package encounter_test

import (
	"encoding/json"
	"testing"

	"github.com/shalun/raidlogs/internal/domain/encounter"
	"github.com/shalun/raidlogs/internal/gamedata"
	. "github.com/smartystreets/goconvey/convey"
)

func validClass(s string) bool { return gamedata.Class(s).Valid() }

func validMember() encounter.Member {
	return encounter.Member{
		PlayerClass:           "Warrior",
		PlayerName:            "Tester",
		PlayerID:              101,
		PlayerServerID:        26,
		PlayerServer:          "Mystel",
		Aggro:                 90,
		PlayerAverageCritRate: 45,
		PlayerDeathDuration:   "0",
		PlayerDeaths:          1,
		PlayerDps:             "12345678",
		PlayerTotalDamage:     "9876543210",
		BuffDetail:            []encounter.BuffRecord{{json.RawMessage("100200")}},
	}
}

func validPayload() *encounter.Payload {
	return &encounter.Payload{
		BossID:             3026,
		AreaID:             3026,
		EncounterUnixEpoch: 1717243200,
		FightDuration:      "312",
		PartyDps:           "71000000",
		DebuffDetail:       []json.RawMessage{json.RawMessage("[90500,1]")},
		Uploader:           "0",
		Members:            []encounter.Member{validMember()},
	}
}

func TestPayloadValidate(t *testing.T) {
	Convey("Given a structurally valid payload", t, func() {
		p := validPayload()

		Convey("Then validation should pass", func() {
			So(p.Validate(validClass), ShouldBeNil)
		})

		Convey("When the boss id is negative", func() {
			p.BossID = -1
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadBossID)
		})

		Convey("When the area id is negative", func() {
			p.AreaID = -5
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadAreaID)
		})

		Convey("When the fight duration is too short", func() {
			p.FightDuration = "7"
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadFightDuration)
		})

		Convey("When the party dps is too short", func() {
			p.PartyDps = "999"
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadPartyDps)
		})

		Convey("When the roster is empty", func() {
			p.Members = nil
			So(p.Validate(validClass), ShouldEqual, encounter.ErrNoMembers)
		})

		Convey("When the uploader field is not numeric", func() {
			p.Uploader = "captain"
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadUploader)
		})

		Convey("When a member carries an unknown class", func() {
			p.Members[0].PlayerClass = "Bard"
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadClass)
		})

		Convey("When a member name is too short", func() {
			p.Members[0].PlayerName = "ab"
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadPlayerName)
		})

		Convey("When a member player id is not positive", func() {
			p.Members[0].PlayerID = 0
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadPlayerID)
		})

		Convey("When a member crit rate is below one", func() {
			p.Members[0].PlayerAverageCritRate = 0
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadCritRate)
		})

		Convey("When a member death count is out of range", func() {
			p.Members[0].PlayerDeaths = 1000
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadDeaths)
		})

		Convey("When a member total damage is empty", func() {
			p.Members[0].PlayerTotalDamage = ""
			So(p.Validate(validClass), ShouldEqual, encounter.ErrBadTotalDamage)
		})
	})
}

func TestIsValidation(t *testing.T) {
	Convey("Given the validation sentinel set", t, func() {
		Convey("Then structural sentinels should be recognized", func() {
			So(encounter.IsValidation(encounter.ErrBadClass), ShouldBeTrue)
			So(encounter.IsValidation(encounter.ErrNoMembers), ShouldBeTrue)
		})

		Convey("Then unrelated errors should not be recognized", func() {
			So(encounter.IsValidation(json.Unmarshal([]byte("{"), &struct{}{})), ShouldBeFalse)
			So(encounter.IsValidation(nil), ShouldBeFalse)
		})
	})
}

func TestUploaderIndex(t *testing.T) {
	Convey("Given an uploader field", t, func() {
		p := validPayload()

		Convey("When it holds a plain index", func() {
			p.Uploader = "3"
			idx, err := p.UploaderIndex()
			So(err, ShouldBeNil)
			So(idx, ShouldEqual, 3)
		})

		Convey("When it holds surrounding whitespace", func() {
			p.Uploader = " 2 "
			idx, err := p.UploaderIndex()
			So(err, ShouldBeNil)
			So(idx, ShouldEqual, 2)
		})

		Convey("When it is not numeric", func() {
			p.Uploader = "first"
			_, err := p.UploaderIndex()
			So(err, ShouldNotBeNil)
		})
	})
}

func TestBuffRecordEffectID(t *testing.T) {
	Convey("Given positional buff records", t, func() {
		Convey("When the first element is a number", func() {
			r := encounter.BuffRecord{json.RawMessage("100200")}
			id, ok := r.EffectID()
			So(ok, ShouldBeTrue)
			So(id, ShouldEqual, 100200)
		})

		Convey("When the first element is a numeric string", func() {
			r := encounter.BuffRecord{json.RawMessage(`"70231"`)}
			id, ok := r.EffectID()
			So(ok, ShouldBeTrue)
			So(id, ShouldEqual, 70231)
		})

		Convey("When the record is empty", func() {
			r := encounter.BuffRecord{}
			_, ok := r.EffectID()
			So(ok, ShouldBeFalse)
		})

		Convey("When the first element is not numeric", func() {
			r := encounter.BuffRecord{json.RawMessage(`"haste"`)}
			_, ok := r.EffectID()
			So(ok, ShouldBeFalse)
		})
	})
}

func TestMemberBuffIDs(t *testing.T) {
	Convey("Given a member with mixed buff records", t, func() {
		m := validMember()
		m.BuffDetail = []encounter.BuffRecord{
			{json.RawMessage("100200"), json.RawMessage("3")},
			{json.RawMessage(`"garbage"`)},
			{json.RawMessage(`"70231"`)},
		}

		Convey("Then only parseable ids should be returned", func() {
			So(m.BuffIDs(), ShouldResemble, []int64{100200, 70231})
		})
	})
}

func TestFingerprint(t *testing.T) {
	Convey("Given two uploads of the same fight", t, func() {
		a := validPayload()
		a.Members = []encounter.Member{validMember(), validMember()}
		a.Members[1].PlayerID = 202
		a.Members[1].PlayerServerID = 27

		b := validPayload()
		b.Members = []encounter.Member{a.Members[1], a.Members[0]}
		b.PartyDps = "99999999"
		b.EncounterUnixEpoch = a.EncounterUnixEpoch + 30

		Convey("Then roster order and stat values should not matter", func() {
			So(a.Fingerprint(), ShouldEqual, b.Fingerprint())
		})

		Convey("When the boss differs", func() {
			b.BossID = 3126
			So(a.Fingerprint(), ShouldNotEqual, b.Fingerprint())
		})

		Convey("When the roster differs", func() {
			b.Members[0].PlayerID = 303
			So(a.Fingerprint(), ShouldNotEqual, b.Fingerprint())
		})
	})
}

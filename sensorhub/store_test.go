package sensorhub

import (
	"fmt"
	"strings"
	"testing"

	sherrors "github.com/CodedInternet/sensorhub/sensorhub/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAttributeStore(t *testing.T) {
	Convey("Given an empty store with room for 8 attributes", t, func() {
		store := NewAttributeStore(8, 32)

		Convey("lookups of unknown keys find nothing", func() {
			_, ok := store.Get("rates")
			So(ok, ShouldBeFalse)
		})

		Convey("insert if absent stores a new key", func() {
			So(store.InsertIfAbsent("rates", Rates{12, 25}), ShouldBeNil)
			v, ok := store.Get("rates")
			So(ok, ShouldBeTrue)
			So(v, ShouldResemble, Rates{12, 25})

			Convey("and does not replace it later", func() {
				So(store.InsertIfAbsent("rates", Rates{100}), ShouldBeNil)
				v, _ := store.Get("rates")
				So(v, ShouldResemble, Rates{12, 25})
				So(store.Len(), ShouldEqual, 1)
			})

			Convey("while upsert overwrites it", func() {
				So(store.Upsert("rates", Rates{100}), ShouldBeNil)
				v, _ := store.Get("rates")
				So(v, ShouldResemble, Rates{100})
				So(store.Len(), ShouldEqual, 1)
			})

			Convey("even with another variant", func() {
				So(store.Upsert("rates", Uid(7)), ShouldBeNil)
				v, _ := store.Get("rates")
				So(v.Kind(), ShouldEqual, KindUid)
			})
		})

		Convey("keys wider than the store allows are refused", func() {
			key := strings.Repeat("k", 33)
			err := store.Upsert(key, Uid(1))
			So(err, ShouldHaveSameTypeAs, sherrors.KeyTooLongError{})
			So(store.Len(), ShouldEqual, 0)
		})

		Convey("values outside their bounds are refused", func() {
			err := store.Upsert("rates", Rates{1, 2, 3, 4, 5, 6, 7, 8, 9})
			So(err, ShouldHaveSameTypeAs, sherrors.InvalidValueError{})

			err = store.Upsert("ranges", Ranges{{Min: 4, Max: -4}})
			So(err, ShouldHaveSameTypeAs, sherrors.InvalidValueError{})

			err = store.Upsert("sensor_name", SensorName(strings.Repeat("x", 33)))
			So(err, ShouldHaveSameTypeAs, sherrors.InvalidValueError{})

			err = store.Upsert("sensor_type", Category(42))
			So(err, ShouldHaveSameTypeAs, sherrors.InvalidValueError{})

			err = store.Upsert("nothing", nil)
			So(err, ShouldHaveSameTypeAs, sherrors.InvalidValueError{})

			So(store.Len(), ShouldEqual, 0)
		})

		Convey("bad values do not replace good ones", func() {
			So(store.Upsert("rates", Rates{12}), ShouldBeNil)
			err := store.Upsert("rates", Rates{1, 2, 3, 4, 5, 6, 7, 8, 9})
			So(err, ShouldNotBeNil)
			v, _ := store.Get("rates")
			So(v, ShouldResemble, Rates{12})
		})

		Convey("once full", func() {
			for i := 0; i < 8; i++ {
				So(store.Upsert(fmt.Sprintf("key%d", i), Uid(i)), ShouldBeNil)
			}
			So(store.Len(), ShouldEqual, 8)

			Convey("a 9th key is refused and the store is unchanged", func() {
				err := store.InsertIfAbsent("key8", Uid(8))
				So(err, ShouldHaveSameTypeAs, sherrors.CapacityExceededError{})

				err = store.Upsert("key8", Uid(8))
				So(err, ShouldHaveSameTypeAs, sherrors.CapacityExceededError{})

				So(store.Len(), ShouldEqual, 8)
				_, ok := store.Get("key8")
				So(ok, ShouldBeFalse)
				for i := 0; i < 8; i++ {
					v, ok := store.Get(fmt.Sprintf("key%d", i))
					So(ok, ShouldBeTrue)
					So(v, ShouldEqual, Uid(i))
				}
			})

			Convey("existing keys can still be updated", func() {
				So(store.Upsert("key3", Uid(33)), ShouldBeNil)
				v, _ := store.Get("key3")
				So(v, ShouldEqual, Uid(33))
				So(store.InsertIfAbsent("key4", Uid(44)), ShouldBeNil)
			})

			Convey("keys keep their insertion order", func() {
				keys := store.Keys()
				So(len(keys), ShouldEqual, 8)
				So(keys[0], ShouldEqual, "key0")
				So(keys[7], ShouldEqual, "key7")
			})
		})
	})
}

func TestAttributeValues(t *testing.T) {
	Convey("constructors enforce bounds", t, func() {
		_, err := NewRates(12, 25, 50, 100, 200, 400, 800, 1600)
		So(err, ShouldBeNil)
		_, err = NewRates(1, 2, 3, 4, 5, 6, 7, 8, 9)
		So(err, ShouldNotBeNil)

		_, err = NewRanges(Range{-16, 16}, Range{-8, 8}, Range{-4, 4}, Range{-2, 2})
		So(err, ShouldBeNil)
		_, err = NewRanges(Range{-16, 16}, Range{-8, 8}, Range{-4, 4}, Range{-2, 2}, Range{-1, 1})
		So(err, ShouldNotBeNil)
	})

	Convey("constructors copy their input", t, func() {
		in := []uint32{12, 25}
		rates, _ := NewRates(in...)
		in[0] = 99
		So(rates[0], ShouldEqual, 12)
	})

	Convey("categories parse by name", t, func() {
		c, err := ParseCategory("AmBient_Light")
		So(err, ShouldBeNil)
		So(c, ShouldEqual, AmbientLight)
		So(c.String(), ShouldEqual, "ambient_light")

		_, err = ParseCategory("barometer")
		So(err, ShouldNotBeNil)
	})

	Convey("every variant reports its kind", t, func() {
		values := []Value{Uid(1), HardwareIndex(2), Gyroscope, SensorName("a"), VendorName("b"), Rates{}, Ranges{}, Bias{}}
		for i, v := range values {
			So(v.Kind(), ShouldEqual, Kind(i))
		}
	})
}

package archive

import (
	"time"

	"trafficetl/internal/schema"
)

// row is the Parquet layout of schema.Stop. Nullable columns are OPTIONAL;
// stop_datetime is stored as UTC epoch milliseconds.
type row struct {
	SeqID        string `parquet:"name=seq_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	StopDatetime *int64 `parquet:"name=stop_datetime, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`

	Agency      *string `parquet:"name=agency, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SubAgency   *string `parquet:"name=subagency, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Description *string `parquet:"name=description, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Location    *string `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`

	Latitude  *float64 `parquet:"name=latitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Longitude *float64 `parquet:"name=longitude, type=DOUBLE, repetitiontype=OPTIONAL"`

	Accident        bool `parquet:"name=accident, type=BOOLEAN"`
	PropertyDamage  bool `parquet:"name=property_damage, type=BOOLEAN"`
	Alcohol         bool `parquet:"name=alcohol, type=BOOLEAN"`
	WorkZone        bool `parquet:"name=work_zone, type=BOOLEAN"`
	PersonalInjury  bool `parquet:"name=personal_injury, type=BOOLEAN"`
	Fatal           bool `parquet:"name=fatal, type=BOOLEAN"`
	SearchConducted bool `parquet:"name=search_conducted, type=BOOLEAN"`

	SearchDisposition *string `parquet:"name=search_disposition, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SearchOutcome     *string `parquet:"name=search_outcome, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SearchReason      *string `parquet:"name=search_reason, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`

	State         *string `parquet:"name=state, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	VehicleType   *string `parquet:"name=vehicle_type, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Make          *string `parquet:"name=make, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Model         *string `parquet:"name=model, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Color         *string `parquet:"name=color, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ViolationType *string `parquet:"name=violation_type, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Charge        *string `parquet:"name=charge, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Race          *string `parquet:"name=race, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Gender        string  `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8"`
	DLState       *string `parquet:"name=dl_state, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

func toRow(s *schema.Stop) row {
	r := row{
		SeqID:             s.SeqID,
		Agency:            s.Agency,
		SubAgency:         s.SubAgency,
		Description:       s.Description,
		Location:          s.Location,
		Latitude:          s.Latitude,
		Longitude:         s.Longitude,
		Accident:          s.Accident,
		PropertyDamage:    s.PropertyDamage,
		Alcohol:           s.Alcohol,
		WorkZone:          s.WorkZone,
		PersonalInjury:    s.PersonalInjury,
		Fatal:             s.Fatal,
		SearchConducted:   s.SearchConducted,
		SearchDisposition: s.SearchDisposition,
		SearchOutcome:     s.SearchOutcome,
		SearchReason:      s.SearchReason,
		State:             s.State,
		VehicleType:       s.VehicleType,
		Make:              s.Make,
		Model:             s.Model,
		Color:             s.Color,
		ViolationType:     s.ViolationType,
		Charge:            s.Charge,
		Race:              s.Race,
		Gender:            s.Gender,
		DLState:           s.DLState,
	}
	if s.StopDatetime != nil {
		ms := s.StopDatetime.UnixMilli()
		r.StopDatetime = &ms
	}
	return r
}

func (r *row) stop() schema.Stop {
	s := schema.Stop{
		SeqID:             r.SeqID,
		Agency:            r.Agency,
		SubAgency:         r.SubAgency,
		Description:       r.Description,
		Location:          r.Location,
		Latitude:          r.Latitude,
		Longitude:         r.Longitude,
		Accident:          r.Accident,
		PropertyDamage:    r.PropertyDamage,
		Alcohol:           r.Alcohol,
		WorkZone:          r.WorkZone,
		PersonalInjury:    r.PersonalInjury,
		Fatal:             r.Fatal,
		SearchConducted:   r.SearchConducted,
		SearchDisposition: r.SearchDisposition,
		SearchOutcome:     r.SearchOutcome,
		SearchReason:      r.SearchReason,
		State:             r.State,
		VehicleType:       r.VehicleType,
		Make:              r.Make,
		Model:             r.Model,
		Color:             r.Color,
		ViolationType:     r.ViolationType,
		Charge:            r.Charge,
		Race:              r.Race,
		Gender:            r.Gender,
		DLState:           r.DLState,
	}
	if r.StopDatetime != nil {
		t := time.UnixMilli(*r.StopDatetime).UTC()
		s.StopDatetime = &t
	}
	return s
}

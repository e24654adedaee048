package fixtures

import (
	"ixp-grapher/domain/core/entities"
	vo "ixp-grapher/domain/core/valueobjects"
)

// Days with traffic summaries. Only port 1000 has a summary on the earlier
// day.
const (
	TrafficDay        = "2026-10-15"
	TrafficDayEarlier = "2026-10-14"
)

// month bits/s maxima: port 3000 runs at 90%, 1000 at 60%, 2000 at 20% and
// 2010 at 10% of its speed
func portTraffic() []entities.PortTraffic {
	port := func(day string, id int, dayMax, monthMax [2]int64, monthTotal int64) entities.PortTraffic {
		return entities.PortTraffic{
			Day:                 day,
			PhysicalInterfaceID: id,
			Category:            vo.CategoryBits,
			Periods: map[vo.Period]entities.TrafficFigures{
				vo.PeriodDay: {MaxIn: dayMax[0], MaxOut: dayMax[1], AverageIn: dayMax[0] / 2, AverageOut: dayMax[1] / 2},
				vo.PeriodMonth: {
					MaxIn: monthMax[0], MaxOut: monthMax[1],
					AverageIn: monthMax[0] / 4, AverageOut: monthMax[1] / 4,
					TotalIn: monthTotal, TotalOut: monthTotal / 2,
				},
			},
		}
	}
	return []entities.PortTraffic{
		port(TrafficDayEarlier, 1000, [2]int64{1e9, 1e9}, [2]int64{2e9, 1e9}, 500),
		port(TrafficDay, 1000, [2]int64{4e9, 2e9}, [2]int64{6e9, 1e9}, 6000),
		port(TrafficDay, 2000, [2]int64{5e9, 8e9}, [2]int64{10e9, 20e9}, 9000),
		port(TrafficDay, 2010, [2]int64{1e8, 1e8}, [2]int64{1e9, 5e8}, 1000),
		port(TrafficDay, 3000, [2]int64{5e8, 1e8}, [2]int64{9e8, 2e8}, 700),
	}
}

func memberTraffic() []entities.MemberTraffic {
	member := func(id int, category vo.Category, dayIn, dayOut int64) entities.MemberTraffic {
		return entities.MemberTraffic{
			Day:        TrafficDay,
			CustomerID: id,
			Category:   category,
			Periods: map[vo.Period]entities.TrafficFigures{
				vo.PeriodDay:  {TotalIn: dayIn, TotalOut: dayOut, MaxIn: dayIn / 10, MaxOut: dayOut / 10},
				vo.PeriodWeek: {TotalIn: dayIn * 7, TotalOut: dayOut * 7},
			},
		}
	}
	return []entities.MemberTraffic{
		member(CustomerX, vo.CategoryBits, 100, 50),
		member(CustomerY, vo.CategoryBits, 300, 100),
		member(CustomerZ, vo.CategoryBits, 10, 10),
		member(CustomerX, vo.CategoryPackets, 7, 7),
		member(99, vo.CategoryBits, 1000, 1000),
	}
}

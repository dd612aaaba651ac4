// Package metrics computes aggregate analytics over the record store:
// sentiment distribution, trailing-hour submission buckets, top topics,
// and per-day topic trends. Grounded on the Python original's metrics.py
// bucket/floor arithmetic.
package metrics

import (
	"sort"
	"time"

	"github.com/vli777/feedback-analyzer/internal/models"
)

const (
	windowMinutes = 60
	bucketMinutes = 5
	bucketCount   = windowMinutes / bucketMinutes
)

// TimeBucket is one 5-minute slice of the trailing-hour submission window.
type TimeBucket struct {
	Bucket   string `json:"bucket"`
	Count    int    `json:"count"`
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
}

// TopicCount pairs a topic with its observed count.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Metrics is the full computed analytics payload.
type Metrics struct {
	SentimentDistribution map[models.Sentiment]int `json:"sentimentDistribution"`
	SubmissionsByTime     []TimeBucket              `json:"submissionsByTime"`
	TopTopics             []TopicCount              `json:"topTopics"`
	TopicTrends           []map[string]any          `json:"topicTrends"`
}

// Compute derives Metrics from the full set of persisted records, relative
// to the instant now. All computation is at-call-time; nothing is
// materialized.
func Compute(records []models.FeedbackRecord, now time.Time) Metrics {
	now = now.UTC()

	sentimentDistribution := map[models.Sentiment]int{
		models.SentimentPositive: 0,
		models.SentimentNeutral:  0,
		models.SentimentNegative: 0,
	}

	windowEnd := floorBucket(now)
	windowStart := windowEnd.Add(-time.Duration(bucketCount-1) * bucketMinutes * time.Minute)

	buckets := make([]TimeBucket, bucketCount)
	for i := range buckets {
		buckets[i] = TimeBucket{
			Bucket: windowStart.Add(time.Duration(i) * bucketMinutes * time.Minute).Format("15:04"),
		}
	}

	type topicOrder struct {
		count     int
		firstSeen int
	}
	topicCounts := map[string]*topicOrder{}
	var topicSeq []string

	for _, r := range records {
		sentimentDistribution[r.Sentiment]++

		createdAt := r.CreatedAt.UTC()
		upperBound := windowEnd.Add(bucketMinutes * time.Minute)
		if !createdAt.Before(windowStart) && !createdAt.After(upperBound) {
			idx := int(createdAt.Sub(windowStart).Seconds()) / (bucketMinutes * 60)
			if idx >= 0 && idx < bucketCount {
				buckets[idx].Count++
				switch r.Sentiment {
				case models.SentimentPositive:
					buckets[idx].Positive++
				case models.SentimentNegative:
					buckets[idx].Negative++
				default:
					buckets[idx].Neutral++
				}
			}
		}

		for _, topic := range r.KeyTopics {
			entry, ok := topicCounts[topic]
			if !ok {
				entry = &topicOrder{firstSeen: len(topicSeq)}
				topicCounts[topic] = entry
				topicSeq = append(topicSeq, topic)
			}
			entry.count++
		}
	}

	topTopics := make([]TopicCount, 0, len(topicSeq))
	for _, topic := range topicSeq {
		topTopics = append(topTopics, TopicCount{Topic: topic, Count: topicCounts[topic].count})
	}
	sort.SliceStable(topTopics, func(i, j int) bool {
		if topTopics[i].Count != topTopics[j].Count {
			return topTopics[i].Count > topTopics[j].Count
		}
		return topicCounts[topTopics[i].Topic].firstSeen < topicCounts[topTopics[j].Topic].firstSeen
	})
	if len(topTopics) > 10 {
		topTopics = topTopics[:10]
	}

	return Metrics{
		SentimentDistribution: sentimentDistribution,
		SubmissionsByTime:     buckets,
		TopTopics:             topTopics,
		TopicTrends:           computeTopicTrends(records, 5),
	}
}

func floorBucket(t time.Time) time.Time {
	t = t.Truncate(time.Minute)
	offset := t.Minute() % bucketMinutes
	return t.Add(-time.Duration(offset) * time.Minute)
}

// computeTopicTrends builds a daily time series for the topK globally most
// frequent topics, keyed by ISO date. Absent days are omitted; absent
// topic counts on a present day are 0.
func computeTopicTrends(records []models.FeedbackRecord, topK int) []map[string]any {
	if len(records) == 0 {
		return []map[string]any{}
	}

	type topicOrder struct {
		count     int
		firstSeen int
	}
	topicCounts := map[string]*topicOrder{}
	var topicSeq []string
	for _, r := range records {
		for _, topic := range r.KeyTopics {
			entry, ok := topicCounts[topic]
			if !ok {
				entry = &topicOrder{firstSeen: len(topicSeq)}
				topicCounts[topic] = entry
				topicSeq = append(topicSeq, topic)
			}
			entry.count++
		}
	}

	type ranked struct {
		topic string
		count int
	}
	rankedTopics := make([]ranked, 0, len(topicSeq))
	for _, topic := range topicSeq {
		rankedTopics = append(rankedTopics, ranked{topic, topicCounts[topic].count})
	}
	sort.SliceStable(rankedTopics, func(i, j int) bool {
		if rankedTopics[i].count != rankedTopics[j].count {
			return rankedTopics[i].count > rankedTopics[j].count
		}
		return topicCounts[rankedTopics[i].topic].firstSeen < topicCounts[rankedTopics[j].topic].firstSeen
	})
	if len(rankedTopics) > topK {
		rankedTopics = rankedTopics[:topK]
	}

	topTopicNames := make(map[string]bool, len(rankedTopics))
	topicOrderList := make([]string, 0, len(rankedTopics))
	for _, t := range rankedTopics {
		topTopicNames[t.topic] = true
		topicOrderList = append(topicOrderList, t.topic)
	}
	if len(topicOrderList) == 0 {
		return []map[string]any{}
	}

	dateTopicCounts := map[string]map[string]int{}
	for _, r := range records {
		dateKey := r.CreatedAt.UTC().Format("2006-01-02")
		for _, topic := range r.KeyTopics {
			if !topTopicNames[topic] {
				continue
			}
			if dateTopicCounts[dateKey] == nil {
				dateTopicCounts[dateKey] = map[string]int{}
			}
			dateTopicCounts[dateKey][topic]++
		}
	}

	dates := make([]string, 0, len(dateTopicCounts))
	for d := range dateTopicCounts {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	result := make([]map[string]any, 0, len(dates))
	for _, dateKey := range dates {
		point := map[string]any{"date": dateKey}
		for _, topic := range topicOrderList {
			point[topic] = dateTopicCounts[dateKey][topic]
		}
		result = append(result, point)
	}
	return result
}

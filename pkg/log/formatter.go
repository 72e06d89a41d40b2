package log

// silentFormatter 아무것도 출력하지 않는 포맷터입니다.
// 출력은 Hook이 담당하므로 logrus 기본 경로의 포맷팅 비용을 없앱니다.
type silentFormatter struct{}

func (f *silentFormatter) Format(_ *Entry) ([]byte, error) {
	return nil, nil
}
